package pipmdns

import "github.com/open-control-systems/discovery-hub/components/core"

type logErrorHandler struct {
	id string
}

func (h *logErrorHandler) HandleError(err error) {
	core.LogErr.Printf("%s: failed to run task: %v\n", h.id, err)
}
