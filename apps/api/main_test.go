package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/trezcool/dojo/core"
	logsvc "github.com/trezcool/dojo/services/logger"
)

type syncLogger struct {
	core.Logger
	synced int
}

func (l *syncLogger) Sync() { l.synced++ }

func Test_flush(t *testing.T) {
	nop := logsvc.NewRollbarLogger(zap.NewNop(), nil)
	api := &syncLogger{Logger: nop}
	db := &syncLogger{Logger: nop}

	flush(api, db, nop)

	assert.Equal(t, 1, api.synced)
	assert.Equal(t, 1, db.synced)
}
