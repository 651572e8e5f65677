package registry

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/jxskiss/base62"

	"github.com/02ricardosouza/robot02-cripto/internal/bot"
	"github.com/02ricardosouza/robot02-cripto/internal/logger"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
)

// Status 是注册表对外暴露的单个机器人的状态快照
type Status struct {
	ID        string
	Symbol    string
	Running   bool
	Simulated bool
	Position  models.PositionState
}

// Registry 管理所有机器人实例的生命周期。所有map操作都在互斥锁
// 保护下进行；锁只覆盖注册表本身，机器人周期内部不持有它。
type Registry struct {
	mu   sync.Mutex
	bots map[string]*bot.TraderBot
}

// New 创建空的注册表
func New() *Registry {
	return &Registry{bots: make(map[string]*bot.TraderBot)}
}

// NewID 生成一个随机的base62机器人标识
func NewID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		logger.S().Warnf("随机ID生成失败, 使用退化方案: %v", err)
	}
	return base62.EncodeToString(buf)
}

// Register 把机器人加入注册表。同一交易对已有运行中的实例时拒绝，
// 避免两个循环对同一账户下单。
func (r *Registry) Register(b *bot.TraderBot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bots[b.ID()]; ok {
		return fmt.Errorf("机器人 %s 已注册", b.ID())
	}
	for _, existing := range r.bots {
		if existing.Symbol() == b.Symbol() && existing.IsRunning() {
			return fmt.Errorf("交易对 %s 已有运行中的机器人 %s", b.Symbol(), existing.ID())
		}
	}
	r.bots[b.ID()] = b
	logger.S().Infof("机器人 %s (%s) 已注册", b.ID(), b.Symbol())
	return nil
}

// Start 启动指定机器人的主循环
func (r *Registry) Start(id string) error {
	r.mu.Lock()
	b, ok := r.bots[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("机器人 %s 不存在", id)
	}
	if b.IsRunning() {
		return bot.ErrAlreadyRunning
	}

	go func() {
		if err := b.Run(); err != nil {
			logger.S().Errorf("机器人 %s 退出: %v", id, err)
		}
	}()
	return nil
}

// Stop 停止指定机器人
func (r *Registry) Stop(id string) error {
	r.mu.Lock()
	b, ok := r.bots[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("机器人 %s 不存在", id)
	}
	b.Stop()
	return nil
}

// StopAll 停止所有机器人，用于进程退出时的优雅收尾
func (r *Registry) StopAll() {
	r.mu.Lock()
	bots := make([]*bot.TraderBot, 0, len(r.bots))
	for _, b := range r.bots {
		bots = append(bots, b)
	}
	r.mu.Unlock()

	for _, b := range bots {
		b.Stop()
	}
}

// List 返回所有已注册机器人的状态快照
func (r *Registry) List() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]Status, 0, len(r.bots))
	for _, b := range r.bots {
		statuses = append(statuses, Status{
			ID:        b.ID(),
			Symbol:    b.Symbol(),
			Running:   b.IsRunning(),
			Simulated: b.Simulated(),
			Position:  b.Position(),
		})
	}
	return statuses
}
