package api

import (
	"github.com/3dxone/news-mirror/app/feed"
)

type GeneratorInterface interface {
	Run(snapshot *feed.Snapshot) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	store     *feed.Store
	generator GeneratorInterface
	version   string
}
