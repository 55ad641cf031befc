package server

import "time"

// StartTicker 启动房间的 Tick 循环（单线程推进世界）；重复调用无效
func (r *Room) StartTicker() {
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.run()
	})
}

func (r *Room) run() {
	defer close(r.stopped)
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.quit:
			return
		case <-ticker.C:
			r.Step()
		}
	}
}

// Step 核心循环：处理输入 → 更新世界 → 广播结果。只能由一个 goroutine 调用
func (r *Room) Step() {
	start := time.Now()
	r.BeginTick() // 同一 Tick 时间线：重置输入计数等帧内状态
	r.ProcessInputs()
	r.UpdateWorld()
	r.BroadcastDelta()
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

// Stop 停止 Tick 循环并关闭所有连接
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
		if r.started.Load() {
			<-r.stopped
		}
		for _, p := range r.participants {
			closeConn(p.Conn)
		}
		r.dropPendingJoins()
		r.log.Infow("room stopped", "ticks", r.Tick())
	})
}

// dropPendingJoins 关闭尚未被 Tick 处理的加入请求对应的连接
func (r *Room) dropPendingJoins() {
	for {
		select {
		case req := <-r.joinChan:
			closeConn(req.conn)
		default:
			return
		}
	}
}
