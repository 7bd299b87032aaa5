package rabbitmq

// AlertsExchange — exchange для служебных уведомлений.
const AlertsExchange = "alerts"

// Очередь и ключ маршрутизации уведомлений о входе администратора.
const (
	AdminLoginAlertQueue      = "alerts.admin-login"
	AdminLoginAlertRoutingKey = "admin-login"
)

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetAlertQueues возвращает очереди уведомлений, потребляемые сервисом отправки писем.
func GetAlertQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: AdminLoginAlertQueue, RoutingKey: AdminLoginAlertRoutingKey},
	}
}
