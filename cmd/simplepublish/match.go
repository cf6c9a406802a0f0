package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/catalog"
	"github.com/tendant/simple-publish/pkg/simplepublish/match"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank catalog candidates against a job posting",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobFile, _ := cmd.Flags().GetString("job")
		catalogFile, _ := cmd.Flags().GetString("catalog")
		topK, _ := cmd.Flags().GetInt("top")
		asJSON, _ := cmd.Flags().GetBool("output-json")

		return runMatch(jobFile, catalogFile, topK, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("job", "", "YAML or JSON file with the job fields")
	matchCmd.Flags().String("catalog", "", "YAML or JSON candidate catalog (default is the built-in demo catalog)")
	matchCmd.Flags().Int("top", match.DefaultTopK, "number of results to show")
	matchCmd.Flags().Bool("output-json", false, "print results as JSON")

	matchCmd.MarkFlagRequired("job")
}

func runMatch(jobFile, catalogFile string, topK int, asJSON bool) error {
	fields, err := readFields(simplepublish.SubjectJob, jobFile)
	if err != nil {
		return err
	}
	job := fields.(*simplepublish.JobFields)
	if err := simplepublish.ValidateFields(job); err != nil {
		return err
	}

	req, err := match.RequirementsFromJob(job)
	if err != nil {
		return err
	}

	candidates := catalog.Demo()
	if catalogFile != "" {
		if candidates, err = catalog.LoadFile(catalogFile); err != nil {
			return err
		}
	}

	results := match.Rank(req, candidates, topK)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tCANDIDATE\tSKILL\tEXPERIENCE\tBUDGET\tREMOTE\tMATCHED SKILLS")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			i+1, r.Total, r.Candidate.Title,
			r.Breakdown.Skill, r.Breakdown.Experience, r.Breakdown.Budget, r.Breakdown.Remote,
			strings.Join(r.MatchedSkills, ", "),
		)
	}
	return w.Flush()
}
