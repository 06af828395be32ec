package sequence

import (
	"github.com/andoni-guzman/cdapio/pkg/plugin"
)

func init() {
	_ = plugin.Register(Name, NewPlugin)
	_ = plugin.RegisterStreaming(Name, Binding{})
}
