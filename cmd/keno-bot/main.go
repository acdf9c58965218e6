package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	app, err := NewApp(configPath)
	if err != nil {
		fmt.Printf("❌ 应用初始化失败: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		fmt.Printf("❌ 应用启动失败: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if err := app.Stop(); err != nil {
		fmt.Printf("❌ 关闭时出错: %v\n", err)
		os.Exit(1)
	}
}
