// ocmexport 将内容目录仓库批量导出到本地磁盘，支持断点续传。
//
// 子命令:
//
//	ocmexport export [flags]   执行导出（默认）
//	ocmexport init [flags]     生成初始配置文件
package main

import (
	"fmt"
	"os"
)

// 退出码。
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "init":
			os.Exit(cmdInit(args[1:]))
		case "export":
			args = args[1:]
		case "help", "-h", "--help":
			usage()
			os.Exit(exitOK)
		}
	}
	os.Exit(cmdExport(args))
}

func usage() {
	fmt.Fprintf(os.Stderr, `用法:
  ocmexport [export] [flags]   执行导出
  ocmexport init [flags]       生成初始配置文件

运行 "ocmexport <子命令> -h" 查看参数。
`)
}
