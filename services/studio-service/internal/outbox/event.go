package outbox

// Topic names double as event types. One event kind per topic.
const (
	TopicAppointmentCreated = "studio.appointment.created.v1"
	TopicProjectCreated     = "studio.project.created.v1"
)

// Event is the envelope committed to the outbox table in the same
// transaction as the row it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
