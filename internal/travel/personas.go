package travel

import (
	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/pipeline"
)

// Stage identifiers.
const (
	StageResearch pipeline.StageID = "research"
	StageGuide    pipeline.StageID = "guide"
	StagePlanning pipeline.StageID = "planning"
)

// DefaultResearchPersona gathers logistics: transport, lodging, weather, visas.
var DefaultResearchPersona = pipeline.Persona{
	Name: "research_agent",
	Role: "Travel Logistics Expert",
	Goal: "Research and provide comprehensive travel information including transportation, accommodations, costs, weather, and requirements",
	Backstory: "You are an experienced travel researcher who quickly gathers essential travel information. " +
		"You know how to find the most relevant details about destinations, transportation options, costs, and travel requirements. " +
		"You provide clear, actionable information without unnecessary elaboration.",
	MaxIterations: 15,
}

// DefaultGuidePersona finds attractions, restaurants and experiences.
var DefaultGuidePersona = pipeline.Persona{
	Name: "guide_agent",
	Role: "Local City Guide",
	Goal: "Discover attractions, restaurants, and experiences tailored to traveler interests",
	Backstory: "You are a knowledgeable local guide who loves sharing the best spots in the city. " +
		"You quickly identify top attractions, authentic restaurants, and unique experiences that match travelers' interests. " +
		"You provide specific recommendations with practical details.",
	MaxIterations: 15,
}

// DefaultPlannerPersona organizes the other two reports into an itinerary.
var DefaultPlannerPersona = pipeline.Persona{
	Name: "planner_agent",
	Role: "Travel Itinerary Planner",
	Goal: "Create a detailed, well-organized day-by-day travel itinerary using information from other experts",
	Backstory: "You are a professional travel planner who excels at organizing information into clear, practical itineraries. " +
		"You take research from the Location Expert and City Guide Expert and craft it into a cohesive travel plan with specific times, locations, and costs. " +
		"You write comprehensive guides that travelers can actually use.\n\n" +
		"You DO NOT search for new information. You ONLY organize and structure the information provided to you by other experts into a beautiful, easy-to-follow itinerary.",
	MaxIterations: 10,
}

// withOverrides returns p with every non-empty field of o applied.
func withOverrides(p pipeline.Persona, o config.PersonaConfig) pipeline.Persona {
	if o.Role != "" {
		p.Role = o.Role
	}
	if o.Goal != "" {
		p.Goal = o.Goal
	}
	if o.Backstory != "" {
		p.Backstory = o.Backstory
	}
	if o.MaxIterations > 0 {
		p.MaxIterations = o.MaxIterations
	}
	return p
}
