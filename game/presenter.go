package game

// Presenter 表现层协作者：只接收事件，从不回写核心状态
type Presenter interface {
	OnSpawn(Event)
	OnDespawn(Event)
	OnAnimationStep(Event)
}

// NopPresenter 默认空实现
type NopPresenter struct{}

func (NopPresenter) OnSpawn(Event) {}
func (NopPresenter) OnDespawn(Event) {}
func (NopPresenter) OnAnimationStep(Event) {}

// Scoring 计分/生命值协作者
type Scoring interface {
	OnCollectibleConsumed(points int)
	OnHazardContact()
}
