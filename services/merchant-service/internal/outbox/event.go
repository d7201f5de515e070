package outbox

// TopicScheduleUpdated carries the full schedule document after every
// successful PUT, keyed by account id.
const TopicScheduleUpdated = "merchant.schedule.updated.v1"

// Event is the envelope written to the outbox table inside the same
// transaction as the state change it describes. The Kafka topic name
// equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
