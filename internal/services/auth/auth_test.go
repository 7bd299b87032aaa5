package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/electrorescue/account-service/internal/authflow"
	"github.com/electrorescue/account-service/internal/identityprovider"
	"github.com/electrorescue/account-service/internal/lib/jwt"
	"github.com/electrorescue/account-service/internal/lib/password"
	"github.com/electrorescue/account-service/internal/models"
	auth "github.com/electrorescue/account-service/internal/services/auth"
	"github.com/electrorescue/account-service/internal/storage/repository"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// Мок для AccountRepository
type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) CreateAccount(ctx context.Context, account models.Account) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *RepoMock) SetVerified(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *RepoMock) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	args := m.Called(ctx, email, passwordHash)
	return args.Error(0)
}

func (m *RepoMock) CountAdmins(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) GetMasterKey(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Мок для IdentityProvider
type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) SignInWithPassword(ctx context.Context, email, pass string) (*identityprovider.AuthResult, error) {
	args := m.Called(ctx, email, pass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityprovider.AuthResult), args.Error(1)
}

func (m *ProviderMock) SignUpWithPassword(ctx context.Context, email, pass string) (*identityprovider.AuthResult, error) {
	args := m.Called(ctx, email, pass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityprovider.AuthResult), args.Error(1)
}

// Мок для Mailer
type MailerMock struct {
	mock.Mock
}

func (m *MailerMock) Send(ctx context.Context, to, subject, body, code string) error {
	args := m.Called(ctx, to, subject, body, code)
	return args.Error(0)
}

// Мок для AlertPublisher
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(message any) error {
	args := m.Called(message)
	return args.Error(0)
}

// Заглушка кеша: всегда промах, записи игнорируются.
type cacheStub struct{}

func (cacheStub) Get(_ string, _ any) (bool, error) { return false, nil }

func (cacheStub) Set(_ string, _ any, _ time.Duration) error { return nil }

func (cacheStub) Invalidate(_ string) error { return nil }

type fixture struct {
	repo     *RepoMock
	provider *ProviderMock
	mailer   *MailerMock
	alerts   *PublisherMock
	flows    *authflow.Store
	svc      *auth.AuthService
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(RepoMock),
		provider: new(ProviderMock),
		mailer:   new(MailerMock),
		alerts:   new(PublisherMock),
		flows:    authflow.NewStore(),
	}
	maker := jwt.NewMaker("test-secret", time.Hour)
	f.svc = auth.New(f.repo, f.provider, f.mailer, f.alerts, cacheStub{}, f.flows, maker, newNoopLogger())
	return f
}

func mustHash(t *testing.T, raw string) string {
	t.Helper()
	h, err := password.GetHash(raw)
	require.NoError(t, err)
	return h
}

func userAccount(t *testing.T, email, rawPassword string) *models.Account {
	t.Helper()
	return &models.Account{
		UID:          "uid-user",
		Name:         "Test User",
		Email:        email,
		Role:         models.RoleUser,
		PasswordHash: mustHash(t, rawPassword),
		Verified:     true,
	}
}

func adminAccount(t *testing.T, email, rawPassword, loginKey string) *models.Account {
	t.Helper()
	a := &models.Account{
		UID:          "uid-admin",
		Name:         "Admin",
		Email:        email,
		Role:         models.RoleAdmin,
		PasswordHash: mustHash(t, rawPassword),
		Verified:     true,
	}
	if loginKey != "" {
		kh := mustHash(t, loginKey)
		a.LoginKeyHash = &kh
	}
	return a
}

func TestAuthService_Login(t *testing.T) {
	const email = "user@example.com"
	const rawPassword = "correctpassword"

	tests := []struct {
		name       string
		setupMocks func(t *testing.T, f *fixture)
		password   string
		wantErr    error
	}{
		{
			name:     "provider accepts credentials",
			password: rawPassword,
			setupMocks: func(t *testing.T, f *fixture) {
				f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
					Return(&identityprovider.AuthResult{UID: "uid-user", Email: email}, nil).Once()
				f.repo.On("GetAccountByEmail", mock.Anything, email).
					Return(userAccount(t, email, rawPassword), nil).Once()
			},
		},
		{
			name:     "provider rejects, stored hash matches",
			password: rawPassword,
			setupMocks: func(t *testing.T, f *fixture) {
				f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
					Return(nil, identityprovider.ErrPasswordMismatch).Once()
				f.repo.On("GetAccountByEmail", mock.Anything, email).
					Return(userAccount(t, email, rawPassword), nil).Once()
			},
		},
		{
			name:     "provider unreachable, stored hash matches",
			password: rawPassword,
			setupMocks: func(t *testing.T, f *fixture) {
				f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
					Return(nil, errors.New("connection refused")).Once()
				f.repo.On("GetAccountByEmail", mock.Anything, email).
					Return(userAccount(t, email, rawPassword), nil).Once()
			},
		},
		{
			name:     "both sources reject password",
			password: "wrongpassword",
			setupMocks: func(t *testing.T, f *fixture) {
				f.provider.On("SignInWithPassword", mock.Anything, email, "wrongpassword").
					Return(nil, identityprovider.ErrPasswordMismatch).Once()
				f.repo.On("GetAccountByEmail", mock.Anything, email).
					Return(userAccount(t, email, rawPassword), nil).Once()
			},
			wantErr: auth.ErrPasswordMismatch,
		},
		{
			name:     "unknown account",
			password: rawPassword,
			setupMocks: func(t *testing.T, f *fixture) {
				f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
					Return(nil, identityprovider.ErrAccountNotFound).Once()
				f.repo.On("GetAccountByEmail", mock.Anything, email).
					Return(nil, repository.ErrAccountNotFound).Once()
			},
			wantErr: auth.ErrAccountNotFound,
		},
		{
			name:     "malformed email passes through",
			password: rawPassword,
			setupMocks: func(t *testing.T, f *fixture) {
				f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
					Return(nil, identityprovider.ErrMalformedEmail).Once()
			},
			wantErr: auth.ErrMalformedEmail,
		},
		{
			name:     "rate limited passes through",
			password: rawPassword,
			setupMocks: func(t *testing.T, f *fixture) {
				f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
					Return(nil, identityprovider.ErrRateLimited).Once()
			},
			wantErr: auth.ErrRateLimited,
		},
		{
			name:     "unverified account is rejected",
			password: rawPassword,
			setupMocks: func(t *testing.T, f *fixture) {
				acc := userAccount(t, email, rawPassword)
				acc.Verified = false
				f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
					Return(&identityprovider.AuthResult{UID: "uid-user", Email: email}, nil).Once()
				f.repo.On("GetAccountByEmail", mock.Anything, email).Return(acc, nil).Once()
			},
			wantErr: auth.ErrNotVerified,
		},
		{
			name:     "admin account never gets session here",
			password: rawPassword,
			setupMocks: func(t *testing.T, f *fixture) {
				f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
					Return(&identityprovider.AuthResult{UID: "uid-admin", Email: email}, nil).Once()
				f.repo.On("GetAccountByEmail", mock.Anything, email).
					Return(adminAccount(t, email, rawPassword, ""), nil).Once()
			},
			wantErr: auth.ErrAdminLoginRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(t, f)

			token, account, err := f.svc.Login(context.Background(), email, tt.password)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, email, account.Email)
			}
			f.provider.AssertExpectations(t)
			f.repo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login_ReservedEmailBlocked(t *testing.T) {
	f := newFixture()

	// Проверка учетных данных даже не начинается.
	token, _, err := f.svc.Login(context.Background(), models.ReservedAdminEmail, "anypassword")

	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrAdminLoginRequired)
	assert.Empty(t, token)
	f.provider.AssertNotCalled(t, "SignInWithPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Register(t *testing.T) {
	const email = "new@example.com"

	t.Run("successful registration starts code entry flow", func(t *testing.T) {
		f := newFixture()
		var sentCode string

		f.provider.On("SignUpWithPassword", mock.Anything, email, "password123").
			Return(&identityprovider.AuthResult{UID: "prov-uid", Email: email}, nil).Once()
		f.repo.On("CreateAccount", mock.Anything, mock.MatchedBy(func(a models.Account) bool {
			return a.Email == email && a.Role == models.RoleUser && !a.Verified && a.PasswordHash != "password123"
		})).Return("prov-uid", nil).Once()
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sentCode = args.String(4) }).
			Return(nil).Once()

		flowID, err := f.svc.Register(context.Background(), "New User", email, "password123")
		require.NoError(t, err)

		flow, ok := f.flows.Get(flowID, authflow.KindRegister)
		require.True(t, ok)
		assert.Equal(t, authflow.StateCodeEntry, flow.State)
		assert.Len(t, sentCode, 6)
		assert.Equal(t, sentCode, flow.Code)

		f.repo.AssertExpectations(t)
		f.mailer.AssertExpectations(t)
	})

	t.Run("reserved email is rejected before provider", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.Register(context.Background(), "Sneaky", models.ReservedAdminEmail, "password123")

		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrEmailReserved)
		f.provider.AssertNotCalled(t, "SignUpWithPassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("existing email maps to taken", func(t *testing.T) {
		f := newFixture()
		f.provider.On("SignUpWithPassword", mock.Anything, email, "password123").
			Return(nil, identityprovider.ErrEmailExists).Once()

		_, err := f.svc.Register(context.Background(), "New User", email, "password123")

		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("mail failure drops flow but keeps account", func(t *testing.T) {
		f := newFixture()
		f.provider.On("SignUpWithPassword", mock.Anything, email, "password123").
			Return(&identityprovider.AuthResult{UID: "prov-uid", Email: email}, nil).Once()
		f.repo.On("CreateAccount", mock.Anything, mock.Anything).Return("prov-uid", nil).Once()
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down")).Once()

		flowID, err := f.svc.Register(context.Background(), "New User", email, "password123")

		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrCodeSendFailed)
		assert.Empty(t, flowID)
		f.repo.AssertExpectations(t)
	})
}

func TestAuthService_VerifyRegistration(t *testing.T) {
	const email = "new@example.com"

	setup := func(t *testing.T) (*fixture, string, string) {
		f := newFixture()
		var sentCode string
		f.provider.On("SignUpWithPassword", mock.Anything, email, "password123").
			Return(&identityprovider.AuthResult{UID: "prov-uid", Email: email}, nil).Once()
		f.repo.On("CreateAccount", mock.Anything, mock.Anything).Return("prov-uid", nil).Once()
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sentCode = args.String(4) }).
			Return(nil).Once()
		flowID, err := f.svc.Register(context.Background(), "New User", email, "password123")
		require.NoError(t, err)
		return f, flowID, sentCode
	}

	t.Run("matching code verifies and issues session", func(t *testing.T) {
		f, flowID, code := setup(t)
		f.repo.On("SetVerified", mock.Anything, email).Return(nil).Once()

		token, account, err := f.svc.VerifyRegistration(context.Background(), flowID, code)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.True(t, account.Verified)

		// Совпадение одноразово: сценарий удален.
		_, ok := f.flows.Get(flowID, authflow.KindRegister)
		assert.False(t, ok)
		f.repo.AssertExpectations(t)
	})

	t.Run("mismatch keeps code valid", func(t *testing.T) {
		f, flowID, code := setup(t)

		_, _, err := f.svc.VerifyRegistration(context.Background(), flowID, "000000")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidVerificationCode)

		flow, ok := f.flows.Get(flowID, authflow.KindRegister)
		require.True(t, ok)
		assert.Equal(t, code, flow.Code)

		// Прежний код продолжает действовать.
		f.repo.On("SetVerified", mock.Anything, email).Return(nil).Once()
		_, _, err = f.svc.VerifyRegistration(context.Background(), flowID, code)
		require.NoError(t, err)
	})

	t.Run("unknown flow", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.VerifyRegistration(context.Background(), "b4a0edbe-0000-0000-0000-000000000000", "123456")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrFlowNotFound)
	})
}

func TestAuthService_ResendRegistrationCode(t *testing.T) {
	const email = "new@example.com"

	setup := func(t *testing.T) (*fixture, string, string) {
		f := newFixture()
		var sentCode string
		f.provider.On("SignUpWithPassword", mock.Anything, email, "password123").
			Return(&identityprovider.AuthResult{UID: "prov-uid", Email: email}, nil).Once()
		f.repo.On("CreateAccount", mock.Anything, mock.Anything).Return("prov-uid", nil).Once()
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sentCode = args.String(4) }).
			Return(nil).Once()
		flowID, err := f.svc.Register(context.Background(), "New User", email, "password123")
		require.NoError(t, err)
		return f, flowID, sentCode
	}

	t.Run("resend replaces code", func(t *testing.T) {
		f, flowID, firstCode := setup(t)
		var secondCode string
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { secondCode = args.String(4) }).
			Return(nil).Once()

		require.NoError(t, f.svc.ResendRegistrationCode(context.Background(), flowID))

		flow, ok := f.flows.Get(flowID, authflow.KindRegister)
		require.True(t, ok)
		assert.Equal(t, secondCode, flow.Code)

		// Старый код больше не принимается.
		if firstCode != secondCode {
			_, _, err := f.svc.VerifyRegistration(context.Background(), flowID, firstCode)
			assert.ErrorIs(t, err, auth.ErrInvalidVerificationCode)
		}
	})

	t.Run("send failure keeps old code", func(t *testing.T) {
		f, flowID, firstCode := setup(t)
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down")).Once()

		err := f.svc.ResendRegistrationCode(context.Background(), flowID)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrCodeSendFailed)

		flow, ok := f.flows.Get(flowID, authflow.KindRegister)
		require.True(t, ok)
		assert.Equal(t, firstCode, flow.Code)
	})
}

func TestAuthService_AdminLoginFlow_Key(t *testing.T) {
	const email = "admin@example.com"
	const rawPassword = "adminpass"
	const loginKey = "super-secret-key"

	f := newFixture()
	f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
		Return(nil, identityprovider.ErrPasswordMismatch).Once()
	f.repo.On("GetAccountByEmail", mock.Anything, email).
		Return(adminAccount(t, email, rawPassword, loginKey), nil).Once()

	flowID, err := f.svc.AdminLogin(context.Background(), email, rawPassword)
	require.NoError(t, err)

	flow, ok := f.flows.Get(flowID, authflow.KindAdminLogin)
	require.True(t, ok)
	assert.Equal(t, authflow.StateMethodSelection, flow.State)

	require.NoError(t, f.svc.SelectKeyMethod(context.Background(), flowID))
	flow, ok = f.flows.Get(flowID, authflow.KindAdminLogin)
	require.True(t, ok)
	assert.Equal(t, authflow.StateKeyEntry, flow.State)

	// Неверный ключ оставляет сценарий в ожидании ключа.
	_, _, err = f.svc.VerifyAdminKey(context.Background(), flowID, "wrong-key")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessKey)
	flow, ok = f.flows.Get(flowID, authflow.KindAdminLogin)
	require.True(t, ok)
	assert.Equal(t, authflow.StateKeyEntry, flow.State)

	token, account, err := f.svc.VerifyAdminKey(context.Background(), flowID, loginKey)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleAdmin, account.Role)

	_, ok = f.flows.Get(flowID, authflow.KindAdminLogin)
	assert.False(t, ok)

	// Вход по ключу не публикует уведомлений.
	f.alerts.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestAuthService_AdminLoginFlow_OTP(t *testing.T) {
	const email = "admin@example.com"
	const rawPassword = "adminpass"

	setup := func(t *testing.T) (*fixture, string) {
		f := newFixture()
		f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
			Return(&identityprovider.AuthResult{UID: "uid-admin", Email: email}, nil).Once()
		f.repo.On("GetAccountByEmail", mock.Anything, email).
			Return(adminAccount(t, email, rawPassword, ""), nil).Once()
		flowID, err := f.svc.AdminLogin(context.Background(), email, rawPassword)
		require.NoError(t, err)
		return f, flowID
	}

	t.Run("otp match publishes one alert and issues session", func(t *testing.T) {
		f, flowID := setup(t)
		var sentCode string
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sentCode = args.String(4) }).
			Return(nil).Once()
		f.alerts.On("Publish", mock.MatchedBy(func(a models.AdminLoginAlert) bool {
			return a.Email == email && a.Method == "otp"
		})).Run(func(mock.Arguments) {
			// Публикация происходит уже после успешного перехода сценария.
			got, ok := f.flows.Get(flowID, authflow.KindAdminLogin)
			require.True(t, ok)
			assert.Equal(t, authflow.StateAuthenticated, got.State)
		}).Return(nil).Once()

		require.NoError(t, f.svc.InitiateOTP(context.Background(), flowID))

		token, _, err := f.svc.VerifyAdminOTP(context.Background(), flowID, sentCode)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		f.alerts.AssertNumberOfCalls(t, "Publish", 1)
		_, ok := f.flows.Get(flowID, authflow.KindAdminLogin)
		assert.False(t, ok)
	})

	t.Run("alert publish failure does not block session", func(t *testing.T) {
		f, flowID := setup(t)
		var sentCode string
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sentCode = args.String(4) }).
			Return(nil).Once()
		f.alerts.On("Publish", mock.Anything).Return(errors.New("broker down")).Once()

		require.NoError(t, f.svc.InitiateOTP(context.Background(), flowID))

		token, _, err := f.svc.VerifyAdminOTP(context.Background(), flowID, sentCode)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		// Ровно одна попытка публикации, без повторов.
		f.alerts.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("otp send failure keeps method selection open", func(t *testing.T) {
		f, flowID := setup(t)
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down")).Once()

		err := f.svc.InitiateOTP(context.Background(), flowID)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrCodeSendFailed)

		flow, ok := f.flows.Get(flowID, authflow.KindAdminLogin)
		require.True(t, ok)
		assert.Equal(t, authflow.StateMethodSelection, flow.State)

		// Путь через ключ остается доступен.
		require.NoError(t, f.svc.SelectKeyMethod(context.Background(), flowID))
	})

	t.Run("otp mismatch keeps code entry", func(t *testing.T) {
		f, flowID := setup(t)
		var sentCode string
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sentCode = args.String(4) }).
			Return(nil).Once()

		require.NoError(t, f.svc.InitiateOTP(context.Background(), flowID))

		_, _, err := f.svc.VerifyAdminOTP(context.Background(), flowID, "000000")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidOTPCode)
		f.alerts.AssertNotCalled(t, "Publish", mock.Anything)

		flow, ok := f.flows.Get(flowID, authflow.KindAdminLogin)
		require.True(t, ok)
		assert.Equal(t, authflow.StateCodeEntry, flow.State)
		assert.Equal(t, sentCode, flow.Code)
	})
}

func TestAuthService_AdminLogin_NonAdmin(t *testing.T) {
	const email = "user@example.com"
	const rawPassword = "password123"

	f := newFixture()
	f.provider.On("SignInWithPassword", mock.Anything, email, rawPassword).
		Return(&identityprovider.AuthResult{UID: "uid-user", Email: email}, nil).Once()
	f.repo.On("GetAccountByEmail", mock.Anything, email).
		Return(userAccount(t, email, rawPassword), nil).Once()

	_, err := f.svc.AdminLogin(context.Background(), email, rawPassword)

	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotAdmin)
}

func TestAuthService_RegisterAdmin(t *testing.T) {
	const email = "second-admin@example.com"

	t.Run("default master key works when config empty", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetMasterKey", mock.Anything).Return("", nil).Once()
		f.repo.On("CountAdmins", mock.Anything).Return(1, nil).Once()
		f.provider.On("SignUpWithPassword", mock.Anything, email, "password123").
			Return(&identityprovider.AuthResult{UID: "prov-uid", Email: email}, nil).Once()
		f.repo.On("CreateAccount", mock.Anything, mock.MatchedBy(func(a models.Account) bool {
			return a.Role == models.RoleAdmin && a.Verified && a.LoginKeyHash != nil
		})).Return("prov-uid", nil).Once()

		err := f.svc.RegisterAdmin(context.Background(), "Second Admin", email,
			"password123", auth.DefaultMasterKey, "quick-key")
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("stored master key overrides default", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetMasterKey", mock.Anything).Return("rotated-key", nil).Once()

		err := f.svc.RegisterAdmin(context.Background(), "Second Admin", email,
			"password123", auth.DefaultMasterKey, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidMasterKey)
	})

	t.Run("admin limit checked before provider signup", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetMasterKey", mock.Anything).Return("", nil).Once()
		f.repo.On("CountAdmins", mock.Anything).Return(3, nil).Once()

		err := f.svc.RegisterAdmin(context.Background(), "Fourth Admin", email,
			"password123", auth.DefaultMasterKey, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrAdminLimitReached)

		// Осиротевшая запись у провайдера не создается.
		f.provider.AssertNotCalled(t, "SignUpWithPassword", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	const email = "user@example.com"

	setup := func(t *testing.T) (*fixture, string, string) {
		f := newFixture()
		var sentCode string
		f.repo.On("GetAccountByEmail", mock.Anything, email).
			Return(userAccount(t, email, "oldpassword"), nil).Once()
		f.mailer.On("Send", mock.Anything, email, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sentCode = args.String(4) }).
			Return(nil).Once()
		flowID, err := f.svc.RequestPasswordReset(context.Background(), email)
		require.NoError(t, err)
		return f, flowID, sentCode
	}

	t.Run("full reset flow updates stored hash only", func(t *testing.T) {
		f, flowID, code := setup(t)

		require.NoError(t, f.svc.VerifyResetCode(context.Background(), flowID, code))

		f.repo.On("UpdatePasswordHash", mock.Anything, email, mock.MatchedBy(func(h string) bool {
			return password.CompareHash(h, "newpassword") == nil
		})).Return(nil).Once()

		require.NoError(t, f.svc.ConfirmPasswordReset(context.Background(), flowID, "newpassword"))

		_, ok := f.flows.Get(flowID, authflow.KindReset)
		assert.False(t, ok)
		f.repo.AssertExpectations(t)
	})

	t.Run("new password cannot be set before code check", func(t *testing.T) {
		f, flowID, _ := setup(t)

		err := f.svc.ConfirmPasswordReset(context.Background(), flowID, "newpassword")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidStep)
		f.repo.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetAccountByEmail", mock.Anything, email).
			Return(nil, repository.ErrAccountNotFound).Once()

		_, err := f.svc.RequestPasswordReset(context.Background(), email)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
		f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
