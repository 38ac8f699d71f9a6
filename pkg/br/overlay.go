package br

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const (
	overlayDirName = "overlay"
	bootScriptFile = "firesim.sh"
	initScriptPath = "etc/init.d/S99run"
)

// UARTStart and UARTDone delimit workload output on the serial console. The
// generated init wrapper prints them around the boot script invocation.
const (
	UARTStart = "launching firesim workload run/command"
	UARTDone  = "firesim workload run/command done"
)

var initTemplate = template.Must(template.New("S99run").Parse(`#!/bin/sh

SYSLOGD_ARGS=-n
KLOGD_ARGS=-n

start() {
    echo "` + UARTStart + `" && /firesim.sh {{.Args}} && echo "` + UARTDone + `"
}

case "$1" in
  start)
  start
  ;;
  stop)
  #stop
  ;;
  restart|reload)
  start
  ;;
  *)
  echo "Usage: $0 {start|stop|restart}"
  exit 1
esac

exit
`))

// SetBootScript embeds script in the overlay tree as the workload entrypoint
// packaged into the next image, and regenerates the init wrapper launching
// it with args. An empty script removes the previous one and leaves an empty
// executable placeholder behind: the overlay mechanism cannot express an
// absent file, so the tombstone encodes "no boot script".
//
// The overlay tree is shared, process-wide state, independent of any single
// build identity. Callers must serialize SetBootScript calls against each
// other and against any build that packages the overlay.
func (e Env) SetBootScript(script string, args []string) (string, error) {
	overlay := filepath.Join(e.BoardDir, overlayDirName)
	dst := filepath.Join(overlay, bootScriptFile)

	if err := os.MkdirAll(overlay, 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	if script != "" {
		if err := copyFile(dst, script, 0o755); err != nil {
			return "", err
		}
	} else {
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return "", errors.WithStack(err)
		}
		if err := os.WriteFile(dst, nil, 0o755); err != nil {
			return "", errors.WithStack(err)
		}
	}
	// The umask may have stripped bits during creation.
	if err := os.Chmod(dst, 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	initPath := filepath.Join(overlay, initScriptPath)
	if err := os.MkdirAll(filepath.Dir(initPath), 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	initF, err := os.OpenFile(initPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return "", errors.WithStack(err)
	}

	if err := initTemplate.Execute(initF, struct{ Args string }{Args: strings.Join(args, " ")}); err != nil {
		_ = initF.Close()
		return "", errors.WithStack(err)
	}
	if err := initF.Close(); err != nil {
		return "", errors.WithStack(err)
	}

	return overlay, nil
}
