package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"dbmeta/internal/db"
	"dbmeta/internal/metadata"
	"dbmeta/internal/navigator"
	"dbmeta/internal/session"
	"dbmeta/pkg/config"
)

var (
	connDriver string
	connDSN    string
	nodePath   string
	ddlOptions map[string]string
)

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print the DDL of a node",
	Long: `The ddl command connects to the configured database (or --driver/--dsn),
resolves --node and prints its DDL script.

Options are the same as for metadata.getNodeDDL, e.g.
  --option script.include.drop=true --option script.include.nested=false`,
	Example: `  dbmeta ddl --driver sqlite --dsn ./shop.db --node main/tables/customers`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lc, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer lc.close()

		opts := make(map[string]any, len(ddlOptions))
		for k, v := range ddlOptions {
			opts[k] = v
		}
		out, err := lc.svc.GetNodeDDL(cmd.Context(), lc.sess, lc.node, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the children of a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		lc, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer lc.close()

		children, err := navigator.Children(cmd.Context(), lc.h, lc.node)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			pterm.Info.Printfln("%s has no children", lc.node.ID)
			return nil
		}

		data := pterm.TableData{{"ID", "Kind", "Name"}}
		for _, c := range children {
			data = append(data, []string{c.ID, string(c.Kind), c.Name})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	for _, c := range []*cobra.Command{ddlCmd, nodesCmd} {
		c.Flags().StringVar(&connDriver, "driver", "", "db driver override (postgres, pgx, mysql, sqlite, sqlserver, godror)")
		c.Flags().StringVar(&connDSN, "dsn", "", "dsn override")
		c.Flags().StringVar(&nodePath, "node", "", "node path, e.g. public/tables/users (empty for the database)")
	}
	ddlCmd.Flags().StringToStringVar(&ddlOptions, "option", nil, "DDL option as key=value (repeatable)")
}

// localConn is an in-process session on one database, with nodePath resolved.
type localConn struct {
	pool *db.Pool
	svc  *metadata.DDLService
	sess *session.Session
	h    *db.Handle
	node *navigator.Node
}

func (c *localConn) close() {
	c.svc.Release(c.h)
	c.pool.Close()
}

func connect(ctx context.Context) (*localConn, error) {
	dbCfg := appCfg.Database
	if connDriver != "" && connDSN != "" {
		dbCfg = config.DBConfig{Type: connDriver, DSN: connDSN}
	}
	driver, dsn, err := config.BuildDriverAndDSN(dbCfg)
	if err != nil {
		return nil, err
	}

	conn := session.ConnectionInfo{Driver: driver, DSN: dsn, Timeout: appCfg.Server.ConnectTimeout}
	pcfg := db.DefaultPoolConfig()
	pcfg.IdleTimeout = 0
	pool := db.NewPool(pcfg)
	lc := &localConn{
		pool: pool,
		svc:  metadata.New(pool),
		sess: session.NewSession(uuid.NewString(), conn, time.Hour),
	}

	lc.h, err = lc.svc.Handle(ctx, lc.sess)
	if err != nil {
		pool.Close()
		return nil, err
	}
	lc.node, err = navigator.Resolve(ctx, lc.h, nodePath)
	if err != nil {
		lc.close()
		return nil, err
	}
	return lc, nil
}
