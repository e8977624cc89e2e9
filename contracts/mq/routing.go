package mq

// Routing keys on the "events" topic exchange.
const (
	RoutingReactionChanged = "reaction.changed"
	RoutingCommentCreated  = "comment.created"
	RoutingTaskAssigned    = "task.assigned"
	RoutingReminderCreated = "reminder.created"

	// change.<table>
	RoutingChangePrefix = "change."
	RoutingChangeAll    = "change.#"
)

// ChangeRoutingKey 返回某张表的变更事件 routing key
func ChangeRoutingKey(table string) string {
	return RoutingChangePrefix + table
}
