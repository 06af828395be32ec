package textio

import (
	"github.com/andoni-guzman/cdapio/pkg/plugin"
)

func init() {
	_ = plugin.Register(Name, NewPlugin)
}
