package game

// EventKind 复制事件类型
type EventKind string

const (
	EventSpawn      EventKind = "spawn"
	EventDestroying EventKind = "destroying"
	EventAnimStep   EventKind = "anim"
	EventDespawn    EventKind = "despawn"
	EventPhase      EventKind = "phase"
)

// Event 权威进程产生、广播给所有观察者的状态变化
type Event struct {
	Seq        uint64    `json:"seq" msgpack:"seq"`
	Kind       EventKind `json:"kind" msgpack:"kind"`
	EntityID   string    `json:"entity_id,omitempty" msgpack:"entity_id,omitempty"`
	EntityKind Cell      `json:"entity_kind,omitempty" msgpack:"entity_kind,omitempty"`
	X          int       `json:"x" msgpack:"x"`
	Z          int       `json:"z" msgpack:"z"`
	Frame      int       `json:"frame,omitempty" msgpack:"frame,omitempty"`
	Frames     int       `json:"frames,omitempty" msgpack:"frames,omitempty"`
	Scale      float64   `json:"scale,omitempty" msgpack:"scale,omitempty"`
	Cause      string    `json:"cause,omitempty" msgpack:"cause,omitempty"`
	Phase      *Status   `json:"phase,omitempty" msgpack:"phase,omitempty"`
}

// Journal 累积一个 Tick 内产生的事件，由传输层在 Tick 末尾取走
type Journal struct {
	seq    uint64
	events []Event
}

// Append 分配序号并追加
func (j *Journal) Append(e Event) Event {
	j.seq++
	e.Seq = j.seq
	j.events = append(j.events, e)
	return e
}

// Drain 取走并清空
func (j *Journal) Drain() []Event {
	out := j.events
	j.events = nil
	return out
}

// Pending 未取走的事件副本
func (j *Journal) Pending() []Event {
	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}

// LastSeq 最近分配的序号
func (j *Journal) LastSeq() uint64 { return j.seq }
