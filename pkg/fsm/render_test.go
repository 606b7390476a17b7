package fsm

import (
	"strings"
	"testing"

	"bottlecangowhere/pkg/config"
	"bottlecangowhere/pkg/finder"
	"bottlecangowhere/pkg/registry"

	"github.com/stretchr/testify/require"
)

func TestRenderNearestFormatsMachine(t *testing.T) {
	results := []finder.Result{{
		Machine: registry.Machine{
			Name: "Mall & Co", Latitude: 1.3, Longitude: 103.8, Address: "1 Road", Description: "B1",
			Hours: "24 hours", Status: registry.StatusOtherIssues, Nearby: "None",
		},
		Distance: 1234.5,
	}}

	text, err := renderNearest(results, config.DefaultDirectionsBaseURL)
	require.NoError(t, err)
	require.Equal(t, "Here are the 1 nearest RVMs:\n"+
		"\n🔴 <b><u>Mall &amp; Co</u></b> (1235 meters)\n"+
		"1 Road\n"+
		"B1\n"+
		"<b>Hours:</b> 24 hours\n"+
		"<b>Status:</b> Other Issues\n"+
		"<b>Get Directions</b>: https://www.google.com/maps/dir/?api=1&amp;destination=1.3,103.8\n", text)
}

func TestRenderReportResultWithoutAlternatives(t *testing.T) {
	text, err := renderReportResult("<C>", registry.StatusWorking, nil, config.DefaultDirectionsBaseURL)
	require.NoError(t, err)
	require.Equal(t, "Thank you for letting us know! The RVM at <u><b>&lt;C&gt;</b></u> is currently <u><b>Working</b></u>.", text)
	require.False(t, strings.Contains(text, "alternative"))
}

func TestStatusEmoji(t *testing.T) {
	require.Equal(t, emojiWorking, statusEmoji(registry.StatusWorking))
	for _, s := range []registry.Status{registry.StatusFull, registry.StatusOutOfOrder, registry.StatusOtherIssues} {
		require.Equal(t, emojiNotWorking, statusEmoji(s))
	}
}
