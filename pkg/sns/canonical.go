package sns

import (
	"fmt"
	"sort"
	"strings"

	"transcode-notifier/constant"
)

var (
	SubscriptionFields = []string{"Message", "MessageId", "SubscribeURL", "Timestamp", "Token", "TopicArn", "Type"}
	NotificationFields = []string{"Message", "MessageId", "Subject", "Timestamp", "TopicArn", "Type"}
)

// BuildCanonical writes "name\nvalue\n" for every name in names present in
// fields, in lexicographic name order. Absent names are skipped.
func BuildCanonical(fields map[string]string, names []string) []byte {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, name := range sorted {
		value, ok := fields[name]
		if !ok {
			continue
		}
		b.WriteString(name)
		b.WriteByte('\n')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func FieldsFor(messageType constant.MessageType) ([]string, error) {
	switch messageType {
	case constant.MessageTypeSubscriptionConfirmation, constant.MessageTypeUnsubscribeConfirmation:
		return SubscriptionFields, nil
	case constant.MessageTypeNotification:
		return NotificationFields, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, string(messageType))
	}
}

func CanonicalFor(messageType constant.MessageType, fields map[string]string) ([]byte, error) {
	names, err := FieldsFor(messageType)
	if err != nil {
		return nil, err
	}
	return BuildCanonical(fields, names), nil
}
