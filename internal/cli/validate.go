package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/security"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
)

// errInvalid is returned when at least one strand fails validation.
var errInvalid = errors.New("design has invalid strands")

const maxStrandBytes = 1 << 20

type validateRow struct {
	name string
	s    *strand.Strand
}

// validateCommand checks every strand of a design, or a single candidate
// strand read from --strand, against the design's helices.
func (c *CLI) validateCommand() *cobra.Command {
	var strandPath string
	cmd := &cobra.Command{
		Use:   "validate <design>",
		Short: "Check strand topology against the design's helices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.loadDesign(args[0])
			if err != nil {
				return err
			}
			var rows []validateRow
			if strandPath != "" {
				s, err := c.readStrand(strandPath)
				if err != nil {
					return err
				}
				rows = append(rows, validateRow{name: "candidate", s: s})
			} else {
				for _, id := range d.StrandIDs() {
					rows = append(rows, validateRow{name: strconv.Itoa(id), s: d.Strands[id]})
				}
			}
			return c.reportValidation(cmd, d, rows)
		},
	}
	cmd.Flags().StringVar(&strandPath, "strand", "", "validate this strand (JSON) instead of the design's strands")
	return cmd
}

func (c *CLI) readStrand(path string) (*strand.Strand, error) {
	clean, err := security.InputPath(path, []string{".json"}, maxStrandBytes)
	if err != nil {
		return nil, err
	}
	data, err := c.FS.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	var s strand.Strand
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse strand %s: %w", clean, err)
	}
	return &s, nil
}

func (c *CLI) reportValidation(cmd *cobra.Command, d *design.Design, rows []validateRow) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRAND\tLENGTH\tSTATUS\tCODE")
	bad := 0
	for _, r := range rows {
		status, code := "ok", "-"
		if err := d.ValidateStrand(r.s); err != nil {
			bad++
			status = err.Error()
			if gc := geomerr.GetCode(err); gc != "" {
				code = string(gc)
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.name, r.s.TotalLength(), status, code)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d: %w", bad, len(rows), errInvalid)
	}
	c.Logger.Info("all strands valid", "strands", len(rows))
	return nil
}
