package viewer

import (
	"sync"
)

// Executor UI 执行上下文：按提交顺序在同一个 goroutine 上执行任务
type Executor interface {
	// Post 提交任务，从不阻塞；执行上下文已关闭时返回 false
	Post(task func()) bool
}

// Looper 单 goroutine 任务循环，队列无界，Post 不会阻塞调用方
type Looper struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	closed  bool
	running bool
}

// NewLooper 创建任务循环，需调用 Run（或 Start）开始执行
func NewLooper() *Looper {
	return &Looper{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start 在新的 goroutine 中运行循环；返回前即视为运行中，随后的 Close 会等待队列清空
func (l *Looper) Start() *Looper {
	if l.claim() {
		go l.loop()
	}
	return l
}

// Run 在当前 goroutine 执行任务，直到 Close 后队列清空
func (l *Looper) Run() {
	if l.claim() {
		l.loop()
	}
}

// claim 标记循环已启动；已经启动过时返回 false
func (l *Looper) claim() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return false
	}
	l.running = true
	return true
}

func (l *Looper) loop() {
	defer close(l.done)

	for {
		l.mu.Lock()
		tasks := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, task := range tasks {
			task()
		}
		if len(tasks) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

// Post 提交任务
func (l *Looper) Post(task func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Sync 提交任务并等待其执行完毕；不能在循环自身的 goroutine 中调用
func (l *Looper) Sync(task func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		task()
	}) {
		return false
	}
	<-finished
	return true
}

// Close 停止接收新任务，等待已提交任务执行完毕；可重复调用
// 不能在循环自身的 goroutine 中调用。
func (l *Looper) Close() {
	l.mu.Lock()
	already := l.closed
	l.closed = true
	running := l.running
	l.mu.Unlock()

	if !already {
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
	if running {
		<-l.done
	}
}
