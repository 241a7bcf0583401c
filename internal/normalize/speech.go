package normalize

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

// Speakers that appear in the speech API but are never legislators.
var nonLegislatorSpeakers = map[string]bool{
	"会議録情報": true, // meeting header record, speechOrder 0
}

// Speaker roles of outside participants (witnesses, unsworn witnesses,
// public hearing speakers).
var nonLegislatorRoles = map[string]bool{
	"証人":  true,
	"参考人": true,
	"公述人": true,
}

// ministrySecretariat marks civil servants answering on behalf of a ministry.
const ministrySecretariat = "大臣官房"

func normalizeSpeech(rec SourceRecord) (Drafts, []Diagnostic) {
	var d Drafts
	var diags []Diagnostic
	degrade := func(field string) {
		diags = append(diags, Diagnostic{
			Kind: SpeechAPI, Line: rec.Line,
			Reason: fmt.Sprintf("%s is not a number: %q", field, rec.get(field)),
		})
	}

	issueID := rec.get("issueID")
	if issueID == "" {
		return d, append(diags, Diagnostic{Kind: SpeechAPI, Line: rec.Line, Skipped: true, Reason: "missing issueID"})
	}

	session, ok := parseInt(rec.get("session"))
	if !ok {
		degrade("session")
	}
	order, ok := parseInt(rec.get("speechOrder"))
	if !ok {
		degrade("speechOrder")
	}

	speechID := rec.get("speechID")
	if speechID == "" {
		if order == nil {
			return d, append(diags, Diagnostic{
				Kind: SpeechAPI, Line: rec.Line, Skipped: true,
				Reason: "missing speechID and speechOrder",
			})
		}
		speechID = fmt.Sprintf("%s-%d", issueID, *order)
	}

	date := optional(rec.get("date"))
	speaker := NormalizeName(rec.get("speaker"))
	group := rec.get("speakerGroup")
	position := rec.get("speakerPosition")
	house := optional(rec.get("nameOfHouse"))

	d.Meetings = append(d.Meetings, database.Meeting{
		IssueID:     issueID,
		Session:     session,
		House:       house,
		MeetingName: optional(rec.get("nameOfMeeting")),
		IssueNumber: optional(rec.get("issue")),
		Date:        date,
		MeetingURL:  optional(rec.get("meetingURL")),
	})

	d.Speeches = append(d.Speeches, SpeechDraft{
		IssueID: issueID,
		Speech: database.Speech{
			SpeechID:        speechID,
			SpeechOrder:     order,
			SpeakerName:     optional(speaker),
			SpeakerGroup:    optional(group),
			SpeakerPosition: optional(position),
			Content:         optional(rec.get("speech")),
			SpeechURL:       optional(rec.get("speechURL")),
			Date:            date,
		},
	})

	if isLegislatorSpeaker(speaker, rec.get("speakerRole")) {
		lastSeen := ""
		if date != nil {
			lastSeen = *date
		}
		d.Legislators = append(d.Legislators, database.Legislator{
			Name:            speaker,
			CurrentParty:    optional(group),
			CurrentPosition: optional(position),
			House:           house,
			IsMember:        group != "" && !strings.Contains(position, ministrySecretariat),
			LastSeen:        lastSeen,
		})
	}

	return d, diags
}

func isLegislatorSpeaker(name, role string) bool {
	if name == "" || nonLegislatorSpeakers[name] {
		return false
	}
	return !nonLegislatorRoles[strings.TrimSpace(role)]
}
