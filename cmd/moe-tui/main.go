package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/handiism/listenmoe-client/internal/api"
	"github.com/handiism/listenmoe-client/internal/auth"
	"github.com/handiism/listenmoe-client/internal/config"
	"github.com/handiism/listenmoe-client/internal/gateway"
	"github.com/handiism/listenmoe-client/internal/http"
	"github.com/handiism/listenmoe-client/internal/logging"
	"github.com/handiism/listenmoe-client/internal/prefs"
	"github.com/handiism/listenmoe-client/internal/tui"
)

func main() {
	var (
		configFlag  = flag.String("config", config.DefaultPath(), "Path to config file")
		libraryFlag = flag.String("library", "", "Radio library: jpop or kpop (overrides config)")
	)
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *libraryFlag != "" {
		settings.Library = *libraryFlag
		if err := settings.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}

	// Logs would draw over the alternate screen.
	logger := logging.Discard()

	store, err := prefs.Open(settings.PreferencesURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening preferences: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	lib := settings.RadioLibrary()
	hc := http.NewClient(
		http.WithBaseURL(settings.APIBase),
		http.WithTimeout(settings.Timeout.Std()),
		http.WithUserAgent(settings.UserAgent),
		http.WithLogger(logger),
	)
	session := auth.NewSession(store, nil)

	opts := tui.Options{
		API: api.NewClient(hc, session, api.WithLibrary(lib), api.WithLogger(logger)),
		Gateway: gateway.New(lib.GatewayURL,
			gateway.WithAuth(session.AuthTokenWithPrefix),
			gateway.WithLogger(logger),
			gateway.WithHeartbeatFallback(settings.GatewayFallback.Std()),
		),
		PreferRomaji: settings.PreferRomaji,
	}

	if err := tui.Run(opts); err != nil {
		store.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
