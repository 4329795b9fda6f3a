// Package main 启动应用程序
package main

import "github.com/yeisme/codespace/pkg/cmd"

//	@title			Codespace API
//	@version		1.0
//	@description	Codespace 工作区存储与同步服务，提供工作区生命周期、文件读写、协同会话落盘、容器同步与历史版本等接口。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
