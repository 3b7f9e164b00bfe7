package domain

const (
	DefaultConferenceName = "conf-demo"
	DefaultBridgeType     = "mixing,dtmf_events"
)

type (
	ConferenceName string
	ConferenceID   string
)

// Conference is a read-only view of the mixing bridge.
type Conference struct {
	ID      ConferenceID   `json:"id"`
	Name    ConferenceName `json:"name"`
	Members []ChannelID    `json:"members"`
}

func (c Conference) Has(id ChannelID) bool {
	for _, m := range c.Members {
		if m == id {
			return true
		}
	}
	return false
}
