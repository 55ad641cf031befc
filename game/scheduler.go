package game

import (
	"container/heap"
	"time"
)

// Scheduler 协作式调度：任务在虚拟时钟到期后于会话线程中依次执行，执行期间不会被抢占
type Scheduler struct {
	now   time.Duration
	seq   uint64
	tasks taskHeap
}

type task struct {
	due time.Duration
	seq uint64
	fn  func()
}

type taskHeap []task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any) { *h = append(*h, x.(task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// Now 当前虚拟时间
func (s *Scheduler) Now() time.Duration { return s.now }

// Pending 尚未执行的任务数
func (s *Scheduler) Pending() int { return len(s.tasks) }

// After 在 delay 之后执行 fn；同一时刻的任务按提交顺序执行
func (s *Scheduler) After(delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	heap.Push(&s.tasks, task{due: s.now + delay, seq: s.seq, fn: fn})
}

// Advance 推进时钟并执行所有到期任务（包括执行过程中新产生的到期任务）
func (s *Scheduler) Advance(dt time.Duration) {
	target := s.now + dt
	for len(s.tasks) > 0 && s.tasks[0].due <= target {
		t := heap.Pop(&s.tasks).(task)
		if t.due > s.now {
			s.now = t.due
		}
		t.fn()
	}
	s.now = target
}
