package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/ledgerline/ledgerline/bank"
	"github.com/ledgerline/ledgerline/cache"
	conf "github.com/ledgerline/ledgerline/config"
	"github.com/ledgerline/ledgerline/controller"
	"github.com/ledgerline/ledgerline/server"
	"github.com/ledgerline/ledgerline/shm"
)

var configFile = flag.String("config", conf.DefaultFilePath, "path to the config file")

func main() {

	// Parse flags, also used to init glog
	flag.Parse()

	// 100 megabytes max before rolling the log files
	glog.MaxSize = 1024 * 1024 * 100

	if err := conf.Load(*configFile); err != nil {
		glog.Fatal(err)
	}

	// The shared segment is the primary record location. If it cannot be
	// created or attached we degrade to file-only operation rather than
	// refusing to start.
	var store *shm.Store
	s, err := shm.Open(
		conf.ConfigStrings[conf.SharedStoreName],
		int(conf.ConfigInt64s[conf.SharedStoreCapacity]),
	)
	if err != nil {
		glog.Errorf("shared store unavailable, continuing file-only: %v", err)
	} else {
		store = s
	}

	client := bank.NewClient(
		conf.ConfigStrings[conf.UpstreamBaseURL],
		conf.ConfigStrings[conf.BankAccountID],
		conf.ConfigStrings[conf.PersonalAccessToken],
		time.Duration(conf.ConfigInt64s[conf.FetchTimeoutSecs])*time.Second,
		time.Duration(conf.ConfigInt64s[conf.ResponseCacheTTLSecs])*time.Second,
	)

	var locker cache.Locker
	if conf.ConfigBools[conf.AdvisoryLock] {
		locker = &cache.FlockLocker{Path: conf.ConfigStrings[conf.AdvisoryLockPath]}
	}

	var policyStore cache.ValueStore
	if store != nil {
		policyStore = store
	}
	policy := cache.NewPolicy(
		policyStore,
		conf.ConfigStrings[conf.CacheFilePath],
		client,
		conf.ConfigInt64s[conf.MinSecsBetweenCalls],
		locker,
	)

	// Guarantee a record exists before the first request arrives
	rec := policy.Bootstrap()
	if glog.V(2) {
		glog.Infof(
			"Bootstrapped record retryAfter=%d lastLookup=%d lastValue=%d",
			rec.RetryAfter,
			rec.LastLookup,
			rec.LastValue,
		)
	}

	controller.Init(
		policy,
		client,
		conf.ConfigStrings[conf.StatementDetailPassword],
	)

	// Catch closing signal, detach from the segment and flush logs. The
	// segment itself is left alive for the next process instance; only an
	// operator removes the name.
	sigc := make(chan os.Signal, 1)
	signal.Notify(
		sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	go func() {
		<-sigc
		if store != nil {
			store.Close()
		}
		glog.Flush()
		os.Exit(1)
	}()

	if glog.V(2) {
		glog.Infof(
			"Starting server on port %d",
			conf.ConfigInt64s[conf.ListenPort],
		)
	}
	server.StartServer(conf.ConfigInt64s[conf.ListenPort])
}
