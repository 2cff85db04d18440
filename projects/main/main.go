package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"

	"github.com/open-control-systems/discovery-hub/components/core"
	"github.com/open-control-systems/discovery-hub/components/http/htcore"
	"github.com/open-control-systems/discovery-hub/components/pipeline/piphttp"
	"github.com/open-control-systems/discovery-hub/components/pipeline/pipmdns"
	"github.com/open-control-systems/discovery-hub/components/storage/stcore"
	"github.com/open-control-systems/discovery-hub/components/storage/stinfluxdb"
	"github.com/open-control-systems/discovery-hub/components/system/sysmdns"
	"github.com/open-control-systems/discovery-hub/components/system/sysnet"
)

type appFlags struct {
	httpHost string
	httpPort int

	dbPath string

	namespaces []string

	advertiseDomain string
	advertiseIP     string
	advertiseTTL    uint32

	queryInterval    time.Duration
	snapshotInterval time.Duration
	resolveTimeout   time.Duration
}

var flags appFlags

var rootCmd = &cobra.Command{
	Use:   "discovery-hub",
	Short: "mDNS service discovery hub",
	Long: `Discovery-hub continuously discovers devices on the local network over mDNS.

Discovered devices are grouped by the queried service namespaces, persisted in
the local storage and optionally exported to the influxDB database. Local
services can be advertised as well, so other hosts on the network can discover
the hub itself.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&flags.httpHost, "http-host", "", "HTTP API host")
	rootCmd.Flags().IntVar(&flags.httpPort, "http-port", 12345, "HTTP API port")

	rootCmd.Flags().StringVar(&flags.dbPath, "db-path", "",
		"path to the local database file, persistence is disabled if empty")

	rootCmd.Flags().StringSliceVar(&flags.namespaces, "query", nil,
		"mDNS service namespace to query, e.g. _http._tcp.local, can be repeated")

	rootCmd.Flags().StringVar(&flags.advertiseDomain, "advertise-domain", "",
		"domain name to advertise, e.g. discovery-hub.local")
	rootCmd.Flags().StringVar(&flags.advertiseIP, "advertise-ip", "",
		"IPv4 address for the advertised domain")
	rootCmd.Flags().Uint32Var(&flags.advertiseTTL, "advertise-ttl", 120,
		"TTL for the advertised records, in seconds")

	rootCmd.Flags().DurationVar(&flags.queryInterval, "query-interval",
		time.Minute, "how often to re-send queries for active namespaces")
	rootCmd.Flags().DurationVar(&flags.snapshotInterval, "snapshot-interval",
		time.Second*30, "how often to persist the registry")
	rootCmd.Flags().DurationVar(&flags.resolveTimeout, "resolve-timeout",
		time.Second*10, "how long to wait for a hostname to be resolved")
}

func run(ctx context.Context) error {
	fanoutCloser := &core.FanoutCloser{}
	defer func() {
		if err := fanoutCloser.Close(); err != nil {
			core.LogErr.Printf("main: failed to close resources: %v\n", err)
		}
	}()

	db, err := makeDB(fanoutCloser)
	if err != nil {
		return err
	}

	pipeline, err := pipmdns.NewPipeline(ctx, fanoutCloser, db,
		pipmdns.PipelineParams{
			Transport:        sysnet.MulticastTransportParams{},
			QueryInterval:    flags.queryInterval,
			SnapshotInterval: flags.snapshotInterval,
		})
	if err != nil {
		return err
	}

	pipeline.Subscribe("log-device-handler", &pipmdns.LogDeviceHandler{})

	dbParams := stinfluxdb.DBParams{
		URL:    os.Getenv("INFLUXDB_URL"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
		Token:  os.Getenv("INFLUXDB_API_TOKEN"),
	}
	if dbParams.Valid() {
		pipeline.Subscribe("influxdb-claim-subscriber",
			stinfluxdb.NewClaimHandler(ctx, fanoutCloser, dbParams))
	}

	if err := registerServices(pipeline.GetHub()); err != nil {
		return err
	}

	serverPipeline, err := piphttp.NewServerPipeline(fanoutCloser,
		htcore.ServerParams{
			Host: flags.httpHost,
			Port: flags.httpPort,
		})
	if err != nil {
		return err
	}

	apiHandler := pipmdns.NewAPIHandler(
		pipeline.GetHub(),
		pipeline.GetResolveStore(),
		flags.resolveTimeout,
	)
	apiHandler.Register(serverPipeline.GetServeMux())

	pipeline.Start()
	serverPipeline.Start()

	for _, namespace := range flags.namespaces {
		if err := pipeline.GetHub().Query(namespace); err != nil {
			core.LogErr.Printf("main: failed to query: namespace=%s err=%v\n",
				namespace, err)
		}
	}

	<-ctx.Done()

	return nil
}

func makeDB(closer *core.FanoutCloser) (stcore.DB, error) {
	if flags.dbPath == "" {
		return &stcore.NoopDB{}, nil
	}

	bboltDB, err := stcore.NewBboltDB(flags.dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("main: failed to open database: path=%s: %w",
			flags.dbPath, err)
	}
	closer.Add("bbolt-database", core.FuncCloser(bboltDB.Close))

	return stcore.NewBboltDBBucket(bboltDB, "registry"), nil
}

func registerServices(hub *sysmdns.Hub) error {
	if flags.advertiseDomain == "" {
		return nil
	}

	ip := net.ParseIP(flags.advertiseIP)
	if ip == nil {
		return fmt.Errorf("main: invalid advertise IP: %s", flags.advertiseIP)
	}

	return hub.RegisterService(sysmdns.Service{
		Domain: flags.advertiseDomain,
		Type:   dns.TypeA,
		TTL:    flags.advertiseTTL,
		IP:     ip,
	})
}

func main() {
	if err := core.SetLogFile(os.Getenv("DISCOVERY_HUB_LOG_PATH")); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to setup log file: ", err)
	}

	appContext, cancelFunc := signal.NotifyContext(context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer cancelFunc()

	if err := rootCmd.ExecuteContext(appContext); err != nil {
		os.Exit(1)
	}
}
