package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/yuya-takeyama/site-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/site-s3-sync/pkg/syncer"
)

// PlanResult represents the planned operations of every site
type PlanResult struct {
	Files   []PlanFile  `json:"files"`
	Summary PlanSummary `json:"summary"`
}

type PlanFile struct {
	Site   string `json:"site"`
	Action string `json:"action"` // "create", "update", "delete", "copy"
	Source string `json:"source,omitempty"`
	Target string `json:"target"`

	Attributes map[string]string `json:"attributes,omitempty"`
}

type PlanSummary struct {
	Create int `json:"create"`
	Update int `json:"update"`
	Delete int `json:"delete"`
	Copy   int `json:"copy"`
}

// SyncResult represents the actual execution results
type SyncResult struct {
	Files   []ResultFile  `json:"files"`
	Errors  []ErrorFile   `json:"errors"`
	Summary ResultSummary `json:"summary"`
}

type ResultFile struct {
	Site   string `json:"site"`
	Action string `json:"action"` // "skipped", "uploaded", "deleted"
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

type ErrorFile struct {
	Site   string `json:"site"`
	Action string `json:"action"` // "upload", "delete"
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type ResultSummary struct {
	Skipped  int `json:"skipped"`
	Uploaded int `json:"uploaded"`
	Deleted  int `json:"deleted"`
	Failed   int `json:"failed"`
}

func buildPlanResult(plans []syncer.SitePlan) PlanResult {
	plan := PlanResult{Files: []PlanFile{}}

	for _, sp := range plans {
		if sp.Plan != nil {
			for _, u := range sp.Plan.Uploads {
				action := "create"
				if u.Remote != nil {
					action = "update"
					plan.Summary.Update++
				} else {
					plan.Summary.Create++
				}
				plan.Files = append(plan.Files, PlanFile{
					Site:       sp.Site,
					Action:     action,
					Source:     u.AbsolutePath,
					Target:     formatS3Path(sp.Bucket, u.Key),
					Attributes: u.Attributes,
				})
			}
			for _, key := range sp.Plan.Deletes {
				plan.Files = append(plan.Files, PlanFile{
					Site:   sp.Site,
					Action: "delete",
					Target: formatS3Path(sp.Bucket, key),
				})
				plan.Summary.Delete++
			}
		}
		for _, op := range sp.Copies {
			plan.Files = append(plan.Files, PlanFile{
				Site:       sp.Site,
				Action:     "copy",
				Target:     formatS3Path(op.Bucket, op.Key),
				Attributes: op.Attributes,
			})
			plan.Summary.Copy++
		}
	}
	return plan
}

func buildSyncResult(results []siteResult) SyncResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].site != results[j].site {
			return results[i].site < results[j].site
		}
		if results[i].bucket != results[j].bucket {
			return results[i].bucket < results[j].bucket
		}
		return results[i].Key < results[j].Key
	})

	out := SyncResult{Files: []ResultFile{}, Errors: []ErrorFile{}}
	for _, r := range results {
		target := formatS3Path(r.bucket, r.Key)
		if r.Error != nil {
			out.Errors = append(out.Errors, ErrorFile{
				Site:   r.site,
				Action: string(r.Action),
				Source: r.LocalPath,
				Target: target,
				Error:  r.Error.Error(),
			})
			out.Summary.Failed++
			continue
		}

		file := ResultFile{Site: r.site, Source: r.LocalPath, Target: target, Reason: r.Reason}
		switch r.Action {
		case executor.ActionUpload:
			file.Action = "uploaded"
			out.Summary.Uploaded++
		case executor.ActionSkip:
			file.Action = "skipped"
			out.Summary.Skipped++
		case executor.ActionDelete:
			file.Action = "deleted"
			out.Summary.Deleted++
		}
		out.Files = append(out.Files, file)
	}
	return out
}

func writePlanResult(path string, plans []syncer.SitePlan) error {
	return writeJSON(path, buildPlanResult(plans))
}

func writeSyncResult(path string, results []siteResult) error {
	return writeJSON(path, buildSyncResult(results))
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func formatS3Path(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
