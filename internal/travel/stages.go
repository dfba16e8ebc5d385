// Package travel declares the BonVoyage pipeline: a research stage and a guide
// stage that may search the web, and a planning stage that turns both reports
// into a day-by-day itinerary without any tools.
package travel

import (
	"github.com/moolen/bonvoyage/internal/agent/tools"
	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/pipeline"
)

// Stages returns the stage list with persona overrides from cfg applied.
func Stages(cfg config.AgentsConfig) []pipeline.Stage {
	return []pipeline.Stage{
		{
			ID:    StageResearch,
			Agent: withOverrides(DefaultResearchPersona, cfg.Research),
			Tools: []string{tools.SearchWebName},
			Task:  ResearchTask,
		},
		{
			ID:    StageGuide,
			Agent: withOverrides(DefaultGuidePersona, cfg.Guide),
			Tools: []string{tools.SearchWebName},
			Task:  GuideTask,
		},
		{
			ID:        StagePlanning,
			Agent:     withOverrides(DefaultPlannerPersona, cfg.Planner),
			DependsOn: []pipeline.StageID{StageResearch, StageGuide},
			Task:      PlanningTask,
		},
	}
}

var stageLabels = map[pipeline.StageID]string{
	StageResearch: "Researching travel logistics",
	StageGuide:    "Discovering local experiences",
	StagePlanning: "Building your itinerary",
}

// StageLabel describes a stage for progress displays.
func StageLabel(id pipeline.StageID) string {
	if l, ok := stageLabels[id]; ok {
		return l
	}
	return string(id)
}
