package commands

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/loykin/webstep/pkg/message"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Process JSON line messages and print outbound messages as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, cleanup, err := startStep(ctx, doc)
		if err != nil {
			return err
		}
		defer cleanup()

		in, closeIn, err := openInput(viper.GetString("input"))
		if err != nil {
			return err
		}
		defer closeIn()

		return runMessages(in, cmd.OutOrStdout(), func(msg message.Message, sink message.Sink) error {
			return s.Handle(ctx, msg, sink)
		})
	},
}

// runMessages feeds every parsed message to handle and streams the
// outbound messages to w as they are produced.
func runMessages(in io.Reader, w io.Writer, handle func(message.Message, message.Sink) error) error {
	enc := json.NewEncoder(w)
	sink := message.SinkFunc(func(m message.Message) error { return enc.Encode(m) })
	return readMessages(in, func(msg message.Message) error {
		return handle(msg, sink)
	})
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	// #nosec G304 -- input path is provided intentionally by the operator
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
