package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/refresh"
)

// Dispatcher turns a decoded request string into a response string. The
// database owns SQL parsing; this module's command surface is the minimal
// set §6 requires a network front-end to expose at all: PING, LIST, and
// REFRESH.
type Dispatcher interface {
	Dispatch(ctx context.Context, request string) (string, error)
}

// CommandDispatcher implements Dispatcher over the catalog and refresh
// engine, supporting:
//
//	PING
//	LIST
//	REFRESH <db_id> <table_id> [evict]
type CommandDispatcher struct {
	Catalog *catalog.Catalog
	Engine  *refresh.Engine
}

func (d *CommandDispatcher) Dispatch(ctx context.Context, request string) (string, error) {
	fields := strings.Fields(request)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty request")
	}

	switch strings.ToUpper(fields[0]) {
	case "PING":
		return "PONG", nil
	case "LIST":
		return d.list()
	case "REFRESH":
		return d.refresh(ctx, fields[1:])
	default:
		return "", fmt.Errorf("unknown command %q", fields[0])
	}
}

func (d *CommandDispatcher) list() (string, error) {
	var names []string
	err := d.Catalog.ForEachTable(func(t *catalog.ForeignTable) error {
		names = append(names, fmt.Sprintf("%d.%d", t.DBID, t.TableID))
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(names, ","), nil
}

func (d *CommandDispatcher) refresh(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("REFRESH requires <db_id> <table_id> [evict]")
	}

	dbID, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("REFRESH: invalid db_id %q", args[0])
	}
	tableID, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("REFRESH: invalid table_id %q", args[1])
	}

	evict := false
	if len(args) > 2 {
		v, err := strconv.ParseBool(args[2])
		if err != nil {
			return "", fmt.Errorf("REFRESH: invalid evict value %q", args[2])
		}
		evict = v
	}

	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	prefix := chunkkey.New(dbID, tableID)
	if err := d.Engine.RefreshTable(runCtx, prefix, refresh.Options{Evict: evict}); err != nil {
		return "", err
	}
	if err := d.Catalog.UpdateLastRefreshTime(dbID, tableID, time.Now()); err != nil {
		return "", err
	}
	return "OK", nil
}
