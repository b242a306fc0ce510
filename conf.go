package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

var conf *Conf

type Conf struct {
	App struct {
		Version string `mapstructure:"version"`
		Title   string `mapstructure:"title"`
	} `mapstructure:"app"`
	Server struct {
		Directory    string            `mapstructure:"directory"`
		Port         int               `mapstructure:"port"`
		AllowedHosts []string          `mapstructure:"allowedHosts"`
		Headers      map[string]string `mapstructure:"headers"`
		CORS         bool              `mapstructure:"cors"`
	} `mapstructure:"server"`
	Output struct {
		LogDir         string `mapstructure:"logDir"`
		OutputTerminal bool   `mapstructure:"outputTerminal"`
	} `mapstructure:"output"`
}

// InitConf 初始化配置, 配置文件可选
func InitConf(v *viper.Viper, cfgFile string) (*Conf, error) {
	// 设置默认值
	v.SetDefault("app.version", "v 0.1.0")
	v.SetDefault("app.title", "MBTiles Server")
	v.SetDefault("server.directory", "./tiles")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allowedHosts", []string{"*"})
	v.SetDefault("server.headers", map[string]string{})
	v.SetDefault("server.cors", true)
	v.SetDefault("output.logDir", "")
	v.SetDefault("output.outputTerminal", true)

	v.SetEnvPrefix("tileserver")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // read in environment variables that match

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			log.Warnf("config file(%s) not exist, using defaults", cfgFile)
		} else {
			v.SetConfigType("toml")
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file(%s) error, details: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	c := new(Conf)
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("配置文件解析失败: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return c, nil
}

// parseHeaders 解析 "Name: value" 形式的自定义响应头
func parseHeaders(lines []string) (map[string]string, error) {
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", line)
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out, nil
}
