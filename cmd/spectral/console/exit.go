package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit builds an exit error with a formatted message.
func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// Fail wraps err into an exit error with code 1.
func Fail(what string, err error) cli.ExitCoder {
	return Exit(1, "%s: %s", what, Red(err))
}
