package constant

// JobState is persisted as the integer codes used by the jobs table.
type JobState int

const (
	JobStateSubmitted JobState = iota
	JobStateProgressing
	JobStateError
	JobStateWarning
	JobStateComplete
)

var jobStateNames = map[JobState]string{
	JobStateSubmitted:   "Submitted",
	JobStateProgressing: "Progressing",
	JobStateError:       "Error",
	JobStateWarning:     "Warning",
	JobStateComplete:    "Complete",
}

func (s JobState) String() string {
	if name, ok := jobStateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether no further transitions are expected for the state.
func (s JobState) Terminal() bool {
	return s == JobStateComplete || s == JobStateError
}

// EventState is the "state" field of a transcoder status event.
type EventState string

const (
	EventStateProgressing EventState = "PROGRESSING"
	EventStateCompleted   EventState = "COMPLETED"
	EventStateError       EventState = "ERROR"
)

// MessageType is the SNS envelope type carried in the x-amz-sns-message-type header.
type MessageType string

const (
	MessageTypeSubscriptionConfirmation MessageType = "SubscriptionConfirmation"
	MessageTypeUnsubscribeConfirmation  MessageType = "UnsubscribeConfirmation"
	MessageTypeNotification             MessageType = "Notification"
)

const MessageTypeHeader = "x-amz-sns-message-type"

type SignalKind string

const (
	SignalProgress SignalKind = "progress"
	SignalComplete SignalKind = "complete"
	SignalError    SignalKind = "error"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

type StorageDriver string

const (
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverMemory   StorageDriver = "memory"
)
