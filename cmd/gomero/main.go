// Command-line interface to a remote bioimage repository.
// Provides image inspection, bounded volume fetches, blob volume export,
// and the local caching proxy.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gred-clermont/gomero/blobvol"
	"github.com/gred-clermont/gomero/cache"
	"github.com/gred-clermont/gomero/gateway"
	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/pixels"
	"github.com/gred-clermont/gomero/proxy"
	"github.com/gred-clermont/gomero/rpc"
	"github.com/gred-clermont/gomero/store"
)

const version = "0.4.0"

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to the TOML configuration file.
	configPath = flag.String("config", "", "")

	// Dial a colocated rpc server instead of connecting a gateway.
	rpcAddress = flag.String("rpc", "", "")

	// Bounded sub-volume specification for fetch/export.
	boundsSpec = flag.String("bounds", "", "")

	// Write fetch output as an Arrow IPC stream instead of raw bytes.
	arrowOut = flag.Bool("arrow", false, "")
)

const helpMessage = `
gomero is a command-line interface to a remote bioimage repository

Usage: gomero [options] <command>

      -config     =string   Path to TOML configuration file.
      -rpc        =string   Address of a colocated rpc server to dial
                            instead of connecting the configured gateway.
      -bounds     =string   Bounded sub-volume as "x0:x1,y0:y1,c0:c1,z0:z1,t0:t1".
                            Empty axes take the full range, e.g. "0:999,0:999,,0:0,".
      -arrow      (flag)    Write fetch output as an Arrow IPC stream.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	info   <image id>
	fetch  <image id> <output file>
	export <image id> <bucket ref>
	proxy
	serve  [address]
`

var usage = func() {
	fmt.Printf(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if *runVerbose {
		gomero.SetLogMode(gomero.DebugMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalln(err.Error())
	}
	config.Log.SetLogger()
	if err := config.Kafka.Initialize(hostID()); err != nil {
		log.Fatalf("Unable to initialize kafka activity publishing: %v\n", err)
	}
	defer gateway.KafkaShutdown()

	command := strings.ToLower(flag.Args()[0])
	if err := doCommand(command, flag.Args()[1:], config); err != nil {
		log.Fatalln(err.Error())
	}
}

func hostID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

func doCommand(command string, args []string, config tomlConfig) error {
	switch command {
	case "about":
		fmt.Printf("gomero version %s\ncache engines: %s\n", version, cache.EnginesAvailable())
		return nil
	case "help":
		flag.Usage()
		return nil
	case "info":
		return doInfo(args, config)
	case "fetch":
		return doFetch(args, config)
	case "export":
		return doExport(args, config)
	case "proxy":
		return doProxy(config)
	case "serve":
		return doServe(args, config)
	}
	return fmt.Errorf("unknown command %q; see 'gomero help'", command)
}

// openSource builds the configured data source: a dialed rpc server, the
// gateway, or a blob volume, optionally wrapped with the cache layers.
func openSource(config tomlConfig) (src store.DataSource, closer func(), err error) {
	var backing store.DataSource
	var closeBacking func()
	switch {
	case *rpcAddress != "":
		rpcSrc, err := rpc.Dial(*rpcAddress)
		if err != nil {
			return nil, nil, err
		}
		backing, closeBacking = rpcSrc, func() { rpcSrc.Close() }
	case config.Gateway.Server != "":
		g, err := gateway.Connect(config.Gateway)
		if err != nil {
			return nil, nil, err
		}
		backing, closeBacking = g, func() { g.Close() }
	case config.Blob.Ref != "":
		v, err := blobvol.Open(context.Background(), config.Blob)
		if err != nil {
			return nil, nil, err
		}
		backing, closeBacking = v, func() { v.Close() }
	default:
		return nil, nil, fmt.Errorf("no gateway server, blob ref, or -rpc address configured")
	}

	if config.Cache.MemoryMB > 0 || config.Cache.Path != "" {
		cached, err := cache.NewSource(backing, config.Cache)
		if err != nil {
			closeBacking()
			return nil, nil, err
		}
		return cached, func() {
			cached.Close()
			closeBacking()
		}, nil
	}
	return backing, closeBacking, nil
}

func imageArg(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing image id argument")
	}
	image, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad image id %q", args[0])
	}
	return image, nil
}

// parseBounds turns "x0:x1,y0:y1,c0:c1,z0:z1,t0:t1" into five per-axis
// requests.  An empty axis or missing trailing axes request the full range.
func parseBounds(spec string) ([5][]int32, error) {
	var reqs [5][]int32
	if spec == "" {
		return reqs, nil
	}
	parts := strings.Split(spec, ",")
	if len(parts) > 5 {
		return reqs, fmt.Errorf("bounds %q name more than 5 axes", spec)
	}
	for i, part := range parts {
		if part == "" {
			continue
		}
		minmax := strings.Split(part, ":")
		if len(minmax) != 2 {
			return reqs, fmt.Errorf("bad bounds component %q; want min:max", part)
		}
		lo, err := strconv.ParseInt(minmax[0], 10, 32)
		if err != nil {
			return reqs, fmt.Errorf("bad bounds component %q: %v", part, err)
		}
		hi, err := strconv.ParseInt(minmax[1], 10, 32)
		if err != nil {
			return reqs, fmt.Errorf("bad bounds component %q: %v", part, err)
		}
		reqs[i] = []int32{int32(lo), int32(hi)}
	}
	return reqs, nil
}

func doInfo(args []string, config tomlConfig) error {
	image, err := imageArg(args)
	if err != nil {
		return err
	}
	src, closer, err := openSource(config)
	if err != nil {
		return err
	}
	defer closer()

	px, err := pixels.New(src, image)
	if err != nil {
		return err
	}
	meta := px.Meta()
	fmt.Printf("Image %d: %q\n", image, px.Name())
	fmt.Printf("  dimensions: %d x %d, %d channels, %d z-sections, %d timepoints\n",
		meta.SizeX, meta.SizeY, meta.SizeC, meta.SizeZ, meta.SizeT)
	fmt.Printf("  pixel type: %s (%d bytes/pixel)\n", meta.Type, meta.Type.BytesPerPixel())
	if meta.PhysicalX != nil {
		fmt.Printf("  physical pixel size X: %s\n", meta.PhysicalX)
	}
	if meta.PhysicalY != nil {
		fmt.Printf("  physical pixel size Y: %s\n", meta.PhysicalY)
	}
	if meta.PhysicalZ != nil {
		fmt.Printf("  physical pixel size Z: %s\n", meta.PhysicalZ)
	}

	if err := px.LoadPlanesInfo(); err != nil {
		return err
	}
	fmt.Printf("  planes with acquisition metadata: %d\n", len(px.PlanesInfo()))
	if interval := px.MeanTimeInterval(); !interval.IsNone() {
		fmt.Printf("  mean time interval: %s\n", interval)
	}
	for c := int32(0); c < meta.SizeC; c++ {
		if exposure := px.MeanExposureTime(c); !exposure.IsNone() {
			fmt.Printf("  mean exposure, channel %d: %s\n", c, exposure)
		}
	}
	posX, posY, posZ := px.PositionX(), px.PositionY(), px.PositionZ()
	if !posX.IsNone() && !posY.IsNone() && !posZ.IsNone() {
		fmt.Printf("  stage position: (%s, %s, %s)\n", posX, posY, posZ)
	}
	return nil
}

func doFetch(args []string, config tomlConfig) error {
	image, err := imageArg(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("missing output file argument")
	}
	reqs, err := parseBounds(*boundsSpec)
	if err != nil {
		return err
	}
	src, closer, err := openSource(config)
	if err != nil {
		return err
	}
	defer closer()

	px, err := pixels.New(src, image)
	if err != nil {
		return err
	}
	b := px.Bounds(reqs[0], reqs[1], reqs[2], reqs[3], reqs[4])

	out, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("unable to create output file %q: %v", args[1], err)
	}
	defer out.Close()

	if *arrowOut {
		return px.WriteVolumeArrow(out, b)
	}
	planes, err := px.AssembleRaw(b)
	if err != nil {
		return err
	}
	for _, zs := range planes {
		for _, cs := range zs {
			for _, plane := range cs {
				if _, err := out.Write(plane); err != nil {
					return fmt.Errorf("unable to write output file %q: %v", args[1], err)
				}
			}
		}
	}
	fmt.Printf("Wrote %s of image %d to %q\n", b, image, args[1])
	return nil
}

func doProxy(config tomlConfig) error {
	src, closer, err := openSource(config)
	if err != nil {
		return err
	}
	defer closer()
	return proxy.New(src, config.Proxy).ListenAndServe()
}

func doServe(args []string, config tomlConfig) error {
	addr := rpc.DefaultAddress
	if len(args) > 0 {
		addr = args[0]
	}
	src, closer, err := openSource(config)
	if err != nil {
		return err
	}
	defer closer()

	srv, err := rpc.Serve(addr, src)
	if err != nil {
		return err
	}
	defer srv.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	gomero.Infof("Shutting down rpc server on signal.\n")
	return nil
}
