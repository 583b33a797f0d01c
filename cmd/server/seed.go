package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"proptracker/server/internal/database"
	"proptracker/server/internal/models"
	"proptracker/server/internal/seed"
)

var (
	stationsFile string
	schoolsFile  string
	gtfsFile     string
	gtfsType     string
	gtfsNetwork  string
	withExample  bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the station and school reference data",
	Long: `Load stations from a JSON dataset or a GTFS static feed, plus schools, into the database.
Existing reference data is replaced. Cached proximity is not recomputed; run "recompute" afterwards.`,
	RunE: runSeed,
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute nearby stations and schools for every property",
	RunE:  runRecompute,
}

func init() {
	seedCmd.Flags().StringVar(&stationsFile, "stations", "", "Stations JSON file (defaults to the bundled dataset)")
	seedCmd.Flags().StringVar(&schoolsFile, "schools", "", "Schools JSON file (defaults to the bundled dataset)")
	seedCmd.Flags().StringVar(&gtfsFile, "gtfs", "", "GTFS static feed zip to load stations from instead of JSON")
	seedCmd.Flags().StringVar(&gtfsType, "gtfs-type", string(models.StationNationalRail), "Station type for GTFS stops")
	seedCmd.Flags().StringVar(&gtfsNetwork, "network", "", "Network name recorded on GTFS stations")
	seedCmd.Flags().BoolVar(&withExample, "example", false, "Insert the example property when none exist")
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stations []models.Station
	if gtfsFile != "" {
		stations, err = seed.LoadGTFSStations(gtfsFile, models.StationType(gtfsType), gtfsNetwork)
	} else {
		stations, err = seed.LoadStations(stationsFile)
	}
	if err != nil {
		return err
	}
	schools, err := seed.LoadSchools(schoolsFile)
	if err != nil {
		return err
	}

	s := a.seeder()
	if err := s.SeedStations(ctx, stations); err != nil {
		return err
	}
	if err := s.SeedSchools(ctx, schools); err != nil {
		return err
	}
	if withExample {
		if _, err := s.SeedExampleProperty(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d stations and %d schools\n", len(stations), len(schools))
	return nil
}

func runRecompute(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	properties, err := a.db.ListProperties(ctx, database.PropertyFilter{})
	if err != nil {
		return err
	}

	updated, err := a.proximity.RecomputeAll(ctx, properties)
	fmt.Fprintf(cmd.OutOrStdout(), "Recomputed %d of %d properties\n", updated, len(properties))
	return err
}
