package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placefinder/internal/geo"
	"github.com/sells-group/placefinder/internal/search"
)

// Output formats accepted by --format.
const (
	formatTable   = "table"
	formatJSON    = "json"
	formatGeoJSON = "geojson"
)

func writeResponse(w io.Writer, resp *search.Response, format string) error {
	switch strings.ToLower(format) {
	case "", formatTable:
		formatPlaces(w, resp)
		return nil
	case formatJSON:
		return writeJSON(w, resp)
	case formatGeoJSON:
		b, err := geo.FeatureCollection(resp.Places)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	default:
		return eris.Errorf("unknown format %q (want table, json, or geojson)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatPlaces(w io.Writer, resp *search.Response) {
	if len(resp.Places) == 0 {
		fmt.Fprintln(w, resp.Message)
		return
	}

	src := "live"
	if resp.FromCache {
		src = "cached"
	}
	fmt.Fprintf(w, "%s: %d places (%s, radius %.1f km)\n\n", resp.City, len(resp.Places), src, resp.RadiusKm)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tCATEGORY\tRATING\tREVIEWS\tADDRESS")
	for i, p := range resp.Places {
		name := p.Name
		if p.IsChain {
			name += " (chain)"
		}
		rating := p.Rating
		if rating == "" {
			rating = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", i+1, name, p.Category, rating, p.ReviewCount, p.Address)
	}
	tw.Flush()

	if resp.CanLoadMore {
		fmt.Fprintln(w, "\nRun `placefinder more` for more places.")
	}
}
