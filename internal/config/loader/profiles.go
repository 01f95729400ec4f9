// Package loader 管理命名策略档案（profiles.yaml）：每个档案在默认参数
// 之上覆盖若干字段，HTTP 提交回测时可按名字引用。文件变更通过 fsnotify
// 热加载，加载失败保留上一份有效配置。
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"martlet/internal/config"
	"martlet/internal/logger"
)

// ProfileStore 持有按名字索引的策略参数集合。
type ProfileStore struct {
	path string
	base config.StrategyParams

	mu       sync.RWMutex
	profiles map[string]config.StrategyParams
}

// NewProfileStore 构造并做首次加载；path 为空表示不使用档案文件。
func NewProfileStore(path string, base config.StrategyParams) (*ProfileStore, error) {
	s := &ProfileStore{
		path:     path,
		base:     base,
		profiles: make(map[string]config.StrategyParams),
	}
	if path == "" {
		return s, nil
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get 返回命名档案；name 为空返回基础参数。
func (s *ProfileStore) Get(name string) (config.StrategyParams, bool) {
	if name == "" {
		return s.base, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[name]
	return p, ok
}

// Names 返回已加载的档案名（排序后）。
func (s *ProfileStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *ProfileStore) reload() error {
	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading profiles failed (%s): %w", s.path, err)
	}
	raw := v.GetStringMap("profiles")
	loaded := make(map[string]config.StrategyParams, len(raw))
	for name := range raw {
		params := s.base // 覆盖式合并：未出现的键保持基础值
		if err := decodeProfile(v.Sub("profiles."+name), &params); err != nil {
			logger.Warnf("profile %s 解析失败，跳过: %v", name, err)
			continue
		}
		if err := params.Validate(); err != nil {
			logger.Warnf("profile %s 参数非法，跳过: %v", name, err)
			continue
		}
		loaded[name] = params
	}
	s.mu.Lock()
	s.profiles = loaded
	s.mu.Unlock()
	logger.Infof("策略档案已加载: %d 个（%s）", len(loaded), s.path)
	return nil
}

func decodeProfile(sub *viper.Viper, dest *config.StrategyParams) error {
	if sub == nil {
		return fmt.Errorf("empty profile body")
	}
	return sub.Unmarshal(dest, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	})
}

// Watch 阻塞监听档案文件变更直到 ctx 结束；Store 未绑定文件时立即返回。
func (s *ProfileStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// 监听目录而不是文件本身，兼容编辑器的原子替换写入。
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(200*time.Millisecond, func() {
				if err := s.reload(); err != nil {
					logger.Warnf("策略档案热加载失败: %v", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("profiles watcher error: %v", err)
		}
	}
}
