package mqtt

import "strings"

// Topics builds the service's own topics under the configured prefix.
type Topics struct {
	Prefix string
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: graylogic/edge/system/status
func (t Topics) SystemStatus() string {
	return strings.TrimSuffix(t.Prefix, "/") + "/system/status"
}

// ValidateTopic reports whether topic is publishable: non-empty and free of
// the subscription wildcards '+' and '#'.
func ValidateTopic(topic string) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopic
	}
	return nil
}
