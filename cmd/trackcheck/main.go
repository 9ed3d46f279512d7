// Command trackcheck runs the track matching engine on local GPX files.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"groupride-api/models"
	"groupride-api/services"
)

func main() {
	log.SetFlags(0)
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "trackcheck",
		Usage: "Analyze and compare GPX tracks",
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Print the metrics of a track",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "points",
						Usage: "Include the parsed points in the output",
					},
				},
				Action: analyze,
			},
			{
				Name:      "similarity",
				Usage:     "Score how alike two routes are, from 0 to 1",
				ArgsUsage: "TRACK_A TRACK_B",
				Action:    similarity,
			},
			{
				Name:      "proximity",
				Usage:     "Check whether a participant rode with the organizer",
				ArgsUsage: "ORGANIZER PARTICIPANT",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:    "radius",
						Aliases: []string{"r"},
						Usage:   "Count a point as matched within RADIUS meters",
						Value:   models.DefaultProximityRadiusM,
					},
					&cli.Float64Flag{
						Name:    "window",
						Aliases: []string{"w"},
						Usage:   "Compare points recorded within WINDOW seconds of each other",
						Value:   models.DefaultTimeWindowSec,
					},
					&cli.Float64Flag{
						Name:    "threshold",
						Aliases: []string{"t"},
						Usage:   "Minimum matched percentage to count the ride as completed",
						Value:   models.DefaultMinMatchPercent,
					},
				},
				Action: proximity,
			},
			{
				Name:      "export",
				Usage:     "Rewrite a track as GPX 1.1",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to `PATH` instead of standard output",
					},
				},
				Action: export,
			},
		},
	}
}

func analyze(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("analyze takes exactly one FILE", 2)
	}
	track, err := readTrack(c.Args().First())
	if err != nil {
		return err
	}

	out := struct {
		models.TrackSummary
		Points []models.TrackPoint `json:"points,omitempty"`
	}{TrackSummary: track.Summary()}
	if c.Bool("points") {
		out.Points = track.Points
	}
	return writeJSON(c.App.Writer, out)
}

func similarity(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("similarity takes TRACK_A and TRACK_B", 2)
	}
	a, err := readTrack(c.Args().Get(0))
	if err != nil {
		return err
	}
	b, err := readTrack(c.Args().Get(1))
	if err != nil {
		return err
	}

	return writeJSON(c.App.Writer, map[string]float64{"score": services.RouteSimilarity(a, b)})
}

func proximity(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("proximity takes ORGANIZER and PARTICIPANT", 2)
	}
	organizer, err := readTrack(c.Args().Get(0))
	if err != nil {
		return err
	}
	participant, err := readTrack(c.Args().Get(1))
	if err != nil {
		return err
	}

	cfg := models.ProximityConfig{
		ProximityRadiusM: c.Float64("radius"),
		TimeWindowSec:    c.Float64("window"),
		MinMatchPercent:  c.Float64("threshold"),
	}
	if cfg.ProximityRadiusM < 0 || cfg.TimeWindowSec < 0 || cfg.MinMatchPercent < 0 || cfg.MinMatchPercent > 100 {
		return cli.Exit("radius and window must not be negative and threshold must be in [0, 100]", 2)
	}

	return writeJSON(c.App.Writer, services.CheckProximity(organizer, participant, cfg))
}

func export(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("export takes exactly one FILE", 2)
	}
	track, err := readTrack(c.Args().First())
	if err != nil {
		return err
	}

	path := c.String("output")
	if path == "" {
		return services.WriteGPX(c.App.Writer, track)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error opening %s for writing: %w", path, err)
	}
	if err := services.WriteGPX(f, track); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readTrack(filename string) (*models.Track, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}
	track, err := services.ParseTrack(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return track, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
