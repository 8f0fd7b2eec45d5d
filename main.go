package main

import (
	"context"
	"fmt"
	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"os"
	"os/signal"
	"path/filepath"
	ownIo "roadview/io"
	"roadview/labels"
	"roadview/overpass"
	"roadview/roads"
	"roadview/selection"
	"roadview/streetview"
	"roadview/web"
	"strings"
)

const VERSION = "v0.1.0"

type ProviderFlags struct {
	ApiKey      string  `help:"Google Maps API key." env:"GOOGLE_MAPS_API_KEY" placeholder:"<key>"`
	MaxDistance float64 `help:"Maximum distance in meters between a road node and its image." default:"10"`
	Radius      float64 `help:"Radius in meters in which the image provider searches for a panorama." default:"10"`
	Size        string  `help:"Image size as <width>x<height>." default:"640x640"`
}

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	DataDir string      `help:"Folder with raw and processed OSM data." default:"data" type:"path"`

	Download struct {
		Regions []string `help:"Region names, e.g. 'Portland, Oregon'." placeholder:"<region>" arg:""`
		Filter  bool     `help:"Filter the downloaded data into ways and nodes." default:"true" negatable:""`
	} `cmd:"" help:"Downloads all ways and nodes of the given regions from the Overpass API."`
	Filter struct {
		Input    string   `help:"The input file. Either .osm, .pbf or Overpass .json." placeholder:"<input-file>" arg:"" type:"existingfile"`
		Region   string   `help:"Region name used for the output files. Derived from the input file name when not set."`
		Highways []string `help:"Allowed values of the highway tag." default:"primary,secondary,tertiary,residential,motorway"`
		MinNodes int      `help:"Roads need more than this number of nodes." default:"2"`
		GeoJson  string   `help:"Additionally write the filtered roads as GeoJSON into this file." type:"path"`
	} `cmd:"" help:"Filters raw OSM data into the roads and nodes of a region."`
	Select struct {
		Region   string        `help:"Region name." placeholder:"<region>" arg:""`
		Provider ProviderFlags `embed:""`
		ImageDir string        `help:"Folder the images are stored in." default:"images" type:"path"`
		Workers  int           `help:"Number of roads processed concurrently." default:"1"`
		Yes      bool          `help:"Download without asking for confirmation." short:"y"`
		DryRun   bool          `help:"Only probe for images, don't download them."`
		FailFast bool          `help:"Stop at the first failing road."`
		Limit    int           `help:"Only process the first n roads, 0 processes all roads."`
		Outcomes string        `help:"Write all selection outcomes as GeoJSON into this file." type:"path"`
	} `cmd:"" help:"Selects and downloads one street level image per road of a region."`
	Label struct {
		Regions  []string `help:"Regions to look up roads in. Earlier regions take precedence." placeholder:"<region>" arg:""`
		ImageDir string   `help:"Folder with the downloaded images." default:"images" type:"path"`
		Output   string   `help:"CSV output file." default:"image_labels.csv" type:"path"`
	} `cmd:"" help:"Labels downloaded images by the bicycle infrastructure of their roads."`
	Organize struct {
		Labels    string `help:"CSV file created by the label command." placeholder:"<csv-file>" arg:"" type:"existingfile"`
		ImageDir  string `help:"Folder with the downloaded images." default:"images" type:"path"`
		TargetDir string `help:"Folder to copy the images into, one sub-folder per label." default:"images" type:"path"`
	} `cmd:"" help:"Copies labeled images into one folder per label."`
	Describe struct {
		Region   string   `help:"Region name." placeholder:"<region>" arg:""`
		Output   string   `help:"Output file, stdout when not set." type:"path"`
		Excluded []string `help:"Highway values to leave out."`
		Limit    int      `help:"Maximum number of entries per list." default:"50"`
	} `cmd:"" help:"Writes tag frequencies of the roads of a region."`
	Serve struct {
		Region   string        `help:"Region name." placeholder:"<region>" arg:""`
		Provider ProviderFlags `embed:""`
		Port     string        `help:"Port of the server." default:"8080"`
		Cert     string        `help:"TLS certificate file." type:"existingfile"`
		Key      string        `help:"TLS key file." type:"existingfile"`
	} `cmd:"" help:"Starts an HTTP API to review roads and their image selection."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("roadview"),
		kong.Description("Downloads OSM roads and street level images of them."),
		kong.Configuration(kong.JSON, "roadview.json", "~/.config/roadview.json"),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch ctx.Command() {
	case "download <regions>":
		for _, region := range cli.Download.Regions {
			err := download(runCtx, region, cli.Download.Filter)
			sigolo.FatalCheck(err)
		}
	case "filter <input>":
		region := cli.Filter.Region
		if region == "" {
			region = regionOfRawFile(cli.Filter.Input)
		}
		network, err := filter(cli.Filter.Input, region, cli.Filter.Highways, cli.Filter.MinNodes)
		sigolo.FatalCheck(err)
		if cli.Filter.GeoJson != "" {
			err = writeNetworkGeoJson(network, cli.Filter.GeoJson)
			sigolo.FatalCheck(err)
		}
	case "select <region>":
		err := selectImages(runCtx)
		sigolo.FatalCheck(err)
	case "label <regions>":
		err := label(cli.Label.Regions, cli.Label.ImageDir, cli.Label.Output)
		sigolo.FatalCheck(err)
	case "organize <labels>":
		err := organize(cli.Organize.Labels, cli.Organize.ImageDir, cli.Organize.TargetDir)
		sigolo.FatalCheck(err)
	case "describe <region>":
		err := describe(cli.Describe.Region, cli.Describe.Output, cli.Describe.Excluded, cli.Describe.Limit)
		sigolo.FatalCheck(err)
	case "serve <region>":
		err := serve()
		sigolo.FatalCheck(err)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func rawFile(region string) string {
	return filepath.Join(cli.DataDir, "raw", "raw_osm_"+overpass.RegionFileName(region)+".json")
}

func waysFile(region string) string {
	return filepath.Join(cli.DataDir, "processed", "ways_"+overpass.RegionFileName(region)+".json")
}

func nodesFile(region string) string {
	return filepath.Join(cli.DataDir, "processed", "nodes_"+overpass.RegionFileName(region)+".json")
}

// regionOfRawFile turns "data/raw/raw_osm_portland.json" into "portland".
func regionOfRawFile(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.TrimPrefix(name, "raw_osm_")
}

func download(ctx context.Context, region string, filterAfterwards bool) error {
	sigolo.Infof("Download region '%s'", region)

	osmData, err := overpass.NewClient().Download(ctx, region)
	if err != nil {
		return err
	}

	filename := rawFile(region)
	err = os.MkdirAll(filepath.Dir(filename), 0755)
	if err != nil {
		return errors.Wrapf(err, "Unable to create folder for %s", filename)
	}

	err = ownIo.WriteOsmJson(osmData, filename)
	if err != nil {
		return err
	}

	if !filterAfterwards {
		return nil
	}

	network := roads.Filter(osmData.Objects(), roads.DefaultHighwayTypes, roads.DefaultMinNodes)
	return writeNetwork(network, region)
}

func filter(input string, region string, highways []string, minNodes int) (*roads.Network, error) {
	collector := roads.NewCollector(highways, minNodes)
	err := ownIo.NewOsmReader().Read(input, collector)
	if err != nil {
		return nil, err
	}

	network := collector.Network()
	return network, writeNetwork(network, region)
}

func writeNetwork(network *roads.Network, region string) error {
	sigolo.Infof("%d ways and %d nodes in filtered data of '%s'", len(network.Roads), len(network.Nodes), region)

	err := os.MkdirAll(filepath.Dir(waysFile(region)), 0755)
	if err != nil {
		return errors.Wrapf(err, "Unable to create folder for %s", waysFile(region))
	}

	return ownIo.WriteNetworkFiles(network, waysFile(region), nodesFile(region))
}

func writeNetworkGeoJson(network *roads.Network, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to create GeoJSON file %s", filename)
	}
	defer file.Close()

	return ownIo.WriteNetworkAsGeoJson(network, file)
}

func newSelector(flags ProviderFlags, network *roads.Network) (*selection.Selector, *streetview.Client, error) {
	if flags.ApiKey == "" {
		return nil, nil, errors.New("No API key given, use --api-key or GOOGLE_MAPS_API_KEY")
	}

	config := selection.DefaultConfig()
	config.MaxDistance = flags.MaxDistance
	config.Radius = flags.Radius
	config.Size = flags.Size

	client := streetview.NewClient(flags.ApiKey)
	return selection.NewSelector(client, network.Nodes, config), client, nil
}

func selectImages(ctx context.Context) error {
	network, err := ownIo.ReadNetworkFiles(waysFile(cli.Select.Region), nodesFile(cli.Select.Region))
	if err != nil {
		return err
	}

	selector, client, err := newSelector(cli.Select.Provider, network)
	if err != nil {
		return err
	}

	roadsToProcess := network.SortedRoads()
	if cli.Select.Limit > 0 && cli.Select.Limit < len(roadsToProcess) {
		roadsToProcess = roadsToProcess[:cli.Select.Limit]
	}

	batch := &selection.Batch{
		Selector:       selector,
		Confirm:        selection.ConsoleConfirmer(os.Stdin, os.Stderr),
		Workers:        cli.Select.Workers,
		FailFast:       cli.Select.FailFast,
		ProgressWriter: os.Stderr,
	}
	if cli.Select.Yes {
		batch.Confirm = selection.AlwaysConfirm
	}
	if !cli.Select.DryRun {
		store, err := streetview.NewImageStore(cli.Select.ImageDir)
		if err != nil {
			return err
		}
		batch.Fetcher = client
		batch.Store = store
	}

	result, err := batch.Run(ctx, roadsToProcess)
	if result != nil && cli.Select.Outcomes != "" {
		geoJsonErr := ownIo.WriteOutcomesAsGeoJsonFile(result.Outcomes, cli.Select.Outcomes)
		if geoJsonErr != nil {
			sigolo.Errorf("Unable to write outcomes: %+v", geoJsonErr)
		}
	}
	if err != nil {
		return err
	}

	stats := result.Stats
	sigolo.Infof("Accepted: %d, insufficient nodes: %d, no image: %d, too far from road: %d, errors: %d, downloaded: %d",
		stats.Accepted, stats.InsufficientNodes, stats.NoImageAvailable, stats.TooFarFromRoad, stats.Errors, stats.Downloaded)
	if result.Aborted {
		sigolo.Infof("Download aborted")
	}

	return nil
}

func label(regionNames []string, imageDir string, output string) error {
	var regions []labels.Region
	for _, name := range regionNames {
		roadMap, err := ownIo.ReadWaysFile(waysFile(name))
		if err != nil {
			return err
		}
		regions = append(regions, labels.Region{Name: overpass.RegionFileName(name), Roads: roadMap})
	}

	store, err := streetview.NewImageStore(imageDir)
	if err != nil {
		return err
	}
	filenames, err := store.Filenames()
	if err != nil {
		return err
	}

	result := labels.LabelImages(filenames, regions)
	for _, filename := range result.NotFoundFilenames {
		sigolo.Debugf("%s not found", filename)
	}

	file, err := os.Create(output)
	if err != nil {
		return errors.Wrapf(err, "Unable to create label file %s", output)
	}
	defer file.Close()

	err = labels.WriteCSV(result.Rows, file)
	if err != nil {
		return err
	}

	sigolo.Infof("%s saved with %d rows, %d not found", output, len(result.Rows), result.NotFound)
	return nil
}

func organize(labelFile string, imageDir string, targetDir string) error {
	file, err := os.Open(labelFile)
	if err != nil {
		return errors.Wrapf(err, "Unable to open label file %s", labelFile)
	}
	defer file.Close()

	rows, err := labels.ReadCSV(file)
	if err != nil {
		return err
	}

	_, err = labels.Organize(rows, imageDir, targetDir)
	return err
}

func describe(region string, output string, excludedHighways []string, limit int) error {
	roadMap, err := ownIo.ReadWaysFile(waysFile(region))
	if err != nil {
		return err
	}

	network := &roads.Network{Roads: roadMap}
	describedRoads := roads.ExcludeHighways(network.SortedRoads(), excludedHighways)

	if output == "" {
		return roads.WriteDescriptives(describedRoads, os.Stdout, limit)
	}

	file, err := os.Create(output)
	if err != nil {
		return errors.Wrapf(err, "Unable to create descriptives file %s", output)
	}
	defer file.Close()

	err = roads.WriteDescriptives(describedRoads, file, limit)
	if err != nil {
		return err
	}

	sigolo.Infof("%s saved", output)
	return nil
}

func serve() error {
	network, err := ownIo.ReadNetworkFiles(waysFile(cli.Serve.Region), nodesFile(cli.Serve.Region))
	if err != nil {
		return err
	}

	var selector *selection.Selector
	if cli.Serve.Provider.ApiKey != "" {
		selector, _, err = newSelector(cli.Serve.Provider, network)
		if err != nil {
			return err
		}
	} else {
		sigolo.Warnf("No API key given, image selection is disabled")
	}

	if cli.Serve.Cert != "" && cli.Serve.Key != "" {
		web.StartServerTls(cli.Serve.Port, cli.Serve.Cert, cli.Serve.Key, network, selector)
	} else {
		web.StartServer(cli.Serve.Port, network, selector)
	}
	return nil
}
