// Command dquic-server is the demo server: it hands out a fixed pool of
// randomly generated objects to clients that request them by index over
// a DQUIC endpoint (SPEC_FULL.md §6).
package main

import (
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dquic-go/engine"
	"dquic-go/internal/demo"
	"dquic-go/internal/dquiclog"
)

const version = "0.1.0"

var (
	listenAddr string
	numObjects int
	minSizeMB  int
	maxSizeMB  int
)

func main() {
	root := &cobra.Command{
		Use:   "dquic-server",
		Short: "Serve random objects to dquic-client over DQUIC",
		RunE:  run,
	}
	root.Flags().StringVar(&listenAddr, "listen", "localhost:9998", "UDP address to bind")
	root.Flags().IntVar(&numObjects, "objects", 10, "number of objects in the pool")
	root.Flags().IntVar(&minSizeMB, "min-size-mb", 1, "minimum object size in MiB")
	root.Flags().IntVar(&maxSizeMB, "max-size-mb", 2, "maximum object size in MiB")

	if err := root.Execute(); err != nil {
		dquiclog.Default().WithError(err).Fatal("dquic-server: exiting")
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := dquiclog.Default()
	dquiclog.Banner("DQUIC Server", version)

	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	objects := demo.GenerateObjects(rng, numObjects, minSizeMB<<20, maxSizeMB<<20)
	log.WithField("count", numObjects).Info("dquic-server: object pool generated")

	ep := engine.NewWithRand(rng)
	if err := ep.Bind(addr); err != nil {
		return err
	}
	defer ep.Close()
	log.WithField("addr", listenAddr).Info("dquic-server: listening")

	errCh := make(chan error, 1)
	go func() { errCh <- serveOnce(ep, objects, log) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Warn("dquic-server: session error")
		}
	case sig := <-sigCh:
		log.WithField("signal", sig).Warn("dquic-server: shutting down")
	}
	return nil
}

// serveOnce handles exactly one client: a request on demo.RequestStreamID,
// a reply with the requested objects, and the fin sentinel. The demo
// intentionally serves one exchange per process run.
func serveOnce(ep *engine.Endpoint, objects [][]byte, log *dquiclog.Logger) error {
	peer, streams, err := ep.ReceiveFrom(1 << 16)
	if err != nil {
		return err
	}
	reqPayload, ok := streams[demo.RequestStreamID]
	if !ok {
		return nil
	}

	reqs := demo.ParseRequest(reqPayload)
	entry := log.WithConn(peer.String(), 0)
	entry.WithField("num_requests", len(reqs)).Info("dquic-server: request received")

	reply := make(map[uint32][]byte, len(reqs))
	for _, r := range reqs {
		if r.Index < 0 || r.Index >= len(objects) {
			continue
		}
		reply[r.StreamID] = objects[r.Index]
	}
	if _, err := ep.SendTo(peer, reply); err != nil {
		return err
	}

	_, err = ep.SendTo(peer, map[uint32][]byte{demo.FinStreamID: []byte(demo.FinSentinel)})
	if err != nil {
		return err
	}
	entry.Info("dquic-server: reply sent")
	return nil
}
