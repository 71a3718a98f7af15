package warmup

const (
	TopicName        = "warmup"
	warmupKickedName = TopicName + ".kicked"
)

// WarmupKicked lets subscribers open their own connections before real traffic arrives
type WarmupKicked struct {
	UID string
}

func (e WarmupKicked) GetEventTypeName() string {
	return warmupKickedName
}

func (e WarmupKicked) GetAggregateName() string {
	return e.UID
}
