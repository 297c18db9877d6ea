package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dnslin/ocm-export/core/config"
)

func cmdInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("config", "config.yaml", "配置文件输出路径")
	force := fs.Bool("force", false, "覆盖已存在的配置文件")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if err := config.WriteDefault(*path, *force); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		if errors.Is(err, config.ErrConfigExists) {
			fmt.Fprintln(os.Stderr, "使用 -force 覆盖")
			return exitUsage
		}
		return exitFailure
	}
	fmt.Printf("已生成配置文件 %s\n", *path)
	return exitOK
}
