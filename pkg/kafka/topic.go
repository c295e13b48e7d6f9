package kafka

// TopicPrefix namespaces every topic the platform writes.
const TopicPrefix = "restu-food"

// Topic returns "restu-food.<domain>.<action>".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
