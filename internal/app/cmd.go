package app

import (
	"fmt"
	"strings"
)

// Command はmindpalaceバイナリのサブコマンド。
type Command string

const (
	// CommandServe はノートAPIサーバーを起動する。引数なしの場合もこれになる。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションと古いゴミ箱ノートの定期削除を行う。
	CommandWorker Command = "worker"
	// CommandMigrate は埋め込みマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はローカルの/healthを確認する。distrolessにはcurlが無いため。
	CommandHealthcheck Command = "healthcheck"
)

var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand は先頭の引数からサブコマンドを決める。
// 以降の引数は無視する。未知のサブコマンドはエラーにし、誤入力でサーバーが起動しないようにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}
	for _, c := range commands {
		if args[0] == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q (usage: mindpalace [%s])", args[0], usage())
}

func usage() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}
