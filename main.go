package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb/project"

	"revgeo/geocoder"
	"revgeo/store"
	"revgeo/web"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Serve   struct {
		Port     string   `help:"The port to listen on." default:"8080" env:"PORT"`
		Database []string `help:"Geocoding database file(s) to import." placeholder:"<db-file>" required:"" env:"GEOCODER_DB"`
		Radius   float64  `help:"Search radius in meters." default:"100" env:"GEOCODER_RADIUS"`
		Language string   `help:"Language key for address names." env:"GEOCODER_LANGUAGE"`
	} `cmd:"" help:"Serves reverse geocoding requests over HTTP."`
	Reverse struct {
		Lng      float64  `help:"Longitude of the query point." arg:""`
		Lat      float64  `help:"Latitude of the query point." arg:""`
		Database []string `help:"Geocoding database file(s) to import." placeholder:"<db-file>" required:"" env:"GEOCODER_DB"`
		Radius   float64  `help:"Search radius in meters." default:"100" env:"GEOCODER_RADIUS"`
		Language string   `help:"Language key for address names." env:"GEOCODER_LANGUAGE"`
	} `cmd:"" help:"Prints the addresses near the given coordinate."`
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
	// A .env file is optional, it only provides defaults for the env-tagged
	// flags below.
	_ = godotenv.Load()

	ctx := kong.Parse(
		&cli,
		kong.Name("revgeo"),
		kong.Description("Offline reverse geocoding against pre-built geocoding databases."),
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

	switch ctx.Command() {
	case "serve":
		revGeocoder := setUpGeocoder(cli.Serve.Database, cli.Serve.Radius, cli.Serve.Language)
		web.StartServer(cli.Serve.Port, revGeocoder)
	case "reverse <lng> <lat>":
		revGeocoder := setUpGeocoder(cli.Reverse.Database, cli.Reverse.Radius, cli.Reverse.Language)

		rankedAddresses, err := revGeocoder.FindAddresses(cli.Reverse.Lng, cli.Reverse.Lat)
		sigolo.FatalCheck(err)

		sigolo.Debugf("Found %d addresses", len(rankedAddresses))
		for _, rankedAddress := range rankedAddresses {
			printAddress(rankedAddress)
		}
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func setUpGeocoder(databaseFiles []string, radius float64, language string) *geocoder.RevGeocoder {
	revGeocoder := geocoder.New()
	revGeocoder.SetRadius(radius)
	revGeocoder.SetLanguage(language)

	for _, databaseFile := range databaseFiles {
		s, err := store.Open(databaseFile)
		sigolo.FatalCheck(err)

		if !revGeocoder.Import(s) {
			sigolo.Fatalf("Unable to import geocoding database %s", databaseFile)
		}
	}

	return revGeocoder
}

func printAddress(rankedAddress geocoder.RankedAddress) {
	position := project.Point(rankedAddress.Address.Position, project.Mercator.ToWGS84)

	components := []string{}
	for _, component := range []string{
		rankedAddress.Address.Name,
		rankedAddress.Address.HouseNumber,
		rankedAddress.Address.Street,
		rankedAddress.Address.Neighbourhood,
		rankedAddress.Address.Locality,
		rankedAddress.Address.County,
		rankedAddress.Address.Region,
		rankedAddress.Address.Country,
	} {
		if component != "" {
			components = append(components, component)
		}
	}

	fmt.Printf("%.3f  [%s]  %s  (%.6f, %.6f)\n",
		rankedAddress.Rank,
		rankedAddress.Address.Type,
		strings.Join(components, ", "),
		position[0],
		position[1],
	)
}
