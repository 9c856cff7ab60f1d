package change

import (
	"fmt"
	"strings"

	"roster/internal/member"
	"roster/internal/review"
)

// AuthorDir is where member cards live in the content repository.
const AuthorDir = "content/_authors"

// BuildPatch serializes a candidate into the file edits the review platform
// needs: one markdown card per member with front matter carrying the record.
// Output is byte-deterministic for equal inputs: field order is fixed and
// team sets arrive pre-sorted from validation, so resubmitting the same
// candidate produces an identical patch.
func BuildPatch(username string, candidate Candidate) []review.FileEdit {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "role: %s\n", candidate.Role)
	writeList(&b, "teams", candidate.Teams)
	writeList(&b, "previously", candidate.PreviousTeams)
	writeMissions(&b, candidate.Missions)
	b.WriteString("---\n")

	return []review.FileEdit{{
		Path:    AuthorDir + "/" + username + ".md",
		Content: b.String(),
	}}
}

func writeList(b *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(b, "%s: []\n", key)
		return
	}
	fmt.Fprintf(b, "%s:\n", key)
	for _, value := range values {
		fmt.Fprintf(b, "  - %s\n", value)
	}
}

func writeMissions(b *strings.Builder, missions []member.Mission) {
	if len(missions) == 0 {
		b.WriteString("missions: []\n")
		return
	}
	b.WriteString("missions:\n")
	for _, mission := range missions {
		fmt.Fprintf(b, "  - start: %s\n", mission.Start.Format(member.DateLayout))
		if mission.End != nil {
			fmt.Fprintf(b, "    end: %s\n", mission.End.Format(member.DateLayout))
		}
	}
}
