// Command mindpalace はノートAPIサーバー・ワーカー・マイグレーションを起動する。
//
//	mindpalace [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/mindpalace/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mindpalace: %v\n", err)
		os.Exit(1)
	}
}
