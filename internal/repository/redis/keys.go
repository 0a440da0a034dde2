package redis

import "fmt"

const ns = "gatego:v1"

func KeyGateStats(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:gatestats", ns, eventID)
}

func KeyIdemNotification(orderID string) string {
	return fmt.Sprintf("%s:idem:notification:%s", ns, orderID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelAdmissions() string {
	return ns + ":admissions"
}
