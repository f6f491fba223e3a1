package main

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config 是 taskrun 的顶层配置。
//
// YAML 示例:
//
//	seconds: true
//	location: Asia/Shanghai
//	pool_size: 8
//	jobs:
//	  - name: backup
//	    spec: "0 3 * * *"
//	    command: /usr/local/bin/backup.sh
//	    args: ["--full"]
type Config struct {
	// Seconds 启用秒级 cron 精度。
	Seconds bool `koanf:"seconds"`
	// Location 时区名（IANA，如 Asia/Shanghai），空值使用本地时区。
	Location string `koanf:"location"`
	// PoolSize 执行池大小，0 使用默认值（GOMAXPROCS）。
	PoolSize int `koanf:"pool_size"`
	// Jobs 任务列表。
	Jobs []JobConfig `koanf:"jobs"`

	location *time.Location // Location 解析结果
}

// JobConfig 是单个任务的配置。
type JobConfig struct {
	// Name 任务名，必填且唯一，用于统计与日志。
	Name string `koanf:"name"`
	// Spec cron 表达式。
	Spec string `koanf:"spec"`
	// Command 要执行的外部命令。
	Command string `koanf:"command"`
	// Args 命令参数。
	Args []string `koanf:"args"`
}

// loadConfig 加载并校验配置文件。
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data)
}

// parseConfig 解析 YAML 配置并校验。
func parseConfig(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate 校验配置的完整性。
func (c *Config) validate() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("config: no jobs defined")
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("config: pool_size must be non-negative, got %d", c.PoolSize)
	}

	if c.Location != "" {
		loc, err := time.LoadLocation(c.Location)
		if err != nil {
			return fmt.Errorf("config: invalid location %q: %w", c.Location, err)
		}
		c.location = loc
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i, jc := range c.Jobs {
		if jc.Name == "" {
			return fmt.Errorf("config: jobs[%d]: name is required", i)
		}
		if seen[jc.Name] {
			return fmt.Errorf("config: duplicate job name %q", jc.Name)
		}
		seen[jc.Name] = true

		if jc.Spec == "" {
			return fmt.Errorf("config: job %q: spec is required", jc.Name)
		}
		if jc.Command == "" {
			return fmt.Errorf("config: job %q: command is required", jc.Name)
		}
	}
	return nil
}
