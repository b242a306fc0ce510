package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SafeExit 收到退出信号后按注册的逆序执行清理函数
type SafeExit struct {
	funcs []func()
	mu    sync.Mutex
	once  sync.Once
	done  chan struct{}
}

func NewSafeExit() *SafeExit {
	return &SafeExit{done: make(chan struct{})}
}

func (s *SafeExit) Register(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.funcs = append(s.funcs, f)
}

// Exit 执行清理, 多次调用只生效一次
func (s *SafeExit) Exit() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for i := len(s.funcs) - 1; i >= 0; i-- {
			s.funcs[i]()
		}
		close(s.done)
	})
}

// Done 清理完成后关闭
func (s *SafeExit) Done() <-chan struct{} {
	return s.done
}

func (s *SafeExit) ListenSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigs
	signal.Stop(sigs)
	log.Infof("收到系统信号 %s, 正在停止服务, 请稍后", sig)
	s.Exit()
}
