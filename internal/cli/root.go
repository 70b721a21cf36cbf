// Package cli はMindPalace APIを操作するコマンドラインクライアントを提供する。
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hitoshi/mindpalace/internal/client"
	"github.com/hitoshi/mindpalace/internal/store"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

// cliApp はコマンド間で共有する状態。PersistentPreRunEで初期化される。
type cliApp struct {
	out    io.Writer
	errOut io.Writer

	server      string
	profilePath string
	verbose     bool

	logger  *slog.Logger
	profile *Profile
	client  *client.Client
	store   *store.Store
}

// NewRootCommand はルートコマンドを生成する。
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &cliApp{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "mindpalace-cli",
		Short: "MindPalace notes client",
		Long: `mindpalace-cli talks to a MindPalace server.
Login state is kept in a YAML profile (default ~/.mindpalace.yaml).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.saveProfile()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.server, "server", "", "Server URL (default from profile, then "+defaultServer+")")
	root.PersistentFlags().StringVar(&a.profilePath, "profile", defaultProfilePath(), "Profile file path")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newSignupCommand(a),
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newWithdrawCommand(a),
		newNotesCommand(a),
	)
	return root
}

func (a *cliApp) setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	profile, err := LoadProfile(a.profilePath)
	if err != nil {
		return err
	}
	a.profile = profile

	server := a.server
	if server == "" {
		server = profile.Server
	}
	if server == "" {
		server = defaultServer
	}
	if server != profile.Server {
		// 接続先が変わった場合は以前のセッションを使わない
		profile.Server = server
		profile.Username = ""
		profile.SessionID = ""
		profile.CSRFToken = ""
	}

	c, err := client.New(server, client.WithLogger(a.logger))
	if err != nil {
		return err
	}
	c.Restore(profile.SessionID, profile.CSRFToken)

	a.client = c
	a.store = store.New(c, c)
	a.logger.Debug("client configured",
		slog.String("server", server),
		slog.String("profile", a.profilePath),
	)
	return nil
}

// saveProfile はクライアントのセッション状態をプロファイルに書き戻す。
func (a *cliApp) saveProfile() error {
	if a.client == nil {
		return nil
	}
	a.profile.SessionID = a.client.SessionID()
	a.profile.CSRFToken = a.client.CSRFToken()
	if a.profile.SessionID == "" {
		a.profile.Username = ""
	}
	if user := a.store.User(); user != nil {
		a.profile.Username = user.Username
	}
	return a.profile.Save(a.profilePath)
}

// requireSession はログインしていない場合にエラーを返す。
func (a *cliApp) requireSession() error {
	if a.client.SessionID() == "" {
		return fmt.Errorf("not logged in: run `mindpalace-cli login` first")
	}
	return nil
}
