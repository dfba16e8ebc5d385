package travel

import (
	"fmt"

	"github.com/moolen/bonvoyage/internal/pipeline"
	"github.com/moolen/bonvoyage/internal/trip"
)

// ResearchTask describes the logistics research for a trip.
func ResearchTask(req trip.Request) pipeline.Task {
	return pipeline.Task{
		Description: fmt.Sprintf(`Research comprehensive travel information for a trip from %s to %s from %s to %s.

Find:
- Transportation options (flights, trains, etc.) with approximate costs
- Accommodation recommendations with price ranges
- Weather conditions during travel dates
- Visa/passport requirements
- Local transportation options
- Currency and exchange rates
- Safety tips and travel advisories

Provide practical, actionable information.`,
			req.Origin(), req.Destination(), req.DateFrom(), req.DateTo()),
		ExpectedOutput: `A detailed report containing:
- Transportation options with costs
- 3-5 accommodation recommendations with prices
- Weather forecast
- Visa requirements
- Local transport info
- Budget estimates`,
	}
}

// GuideTask describes the attraction and restaurant research for a trip.
func GuideTask(req trip.Request) pipeline.Task {
	return pipeline.Task{
		Description: fmt.Sprintf(`Research and recommend attractions and experiences in %s for travelers interested in: %s.
Travel dates: %s to %s.

Find:
- Top 5-10 attractions matching interests
- 5-8 recommended restaurants (local cuisine)
- Unique local experiences
- Cultural events during travel dates
- Shopping areas
- Nightlife options (if relevant to interests)

Include specific names, locations, and approximate costs.`,
			req.Destination(), req.Interests(), req.DateFrom(), req.DateTo()),
		ExpectedOutput: `A detailed guide containing:
- List of attractions with descriptions and costs
- Restaurant recommendations with cuisine types and prices
- Local experiences and activities
- Cultural events
- Practical tips for each location`,
	}
}

// PlanningTask describes the itinerary. It relies only on the research and
// guide reports handed to it as context.
func PlanningTask(req trip.Request) pipeline.Task {
	return pipeline.Task{
		Description: fmt.Sprintf(`Create a comprehensive day-by-day travel itinerary for %s from %s to %s.
The traveler is interested in: %s.

**IMPORTANT**: Use ONLY the information provided by the Location Expert and City Guide Expert.
DO NOT search for new information. Your job is to ORGANIZE the existing research.

Create a detailed itinerary that includes:
- Day-by-day schedule with specific times
- Morning, afternoon, and evening activities
- Restaurant recommendations for each meal
- Transportation between locations
- Estimated costs for each activity
- Daily budget summary
- Practical tips and notes

Format the itinerary clearly with:
## Day 1: [Date]
### Morning (9:00 AM - 12:00 PM)
### Afternoon (12:00 PM - 6:00 PM)
### Evening (6:00 PM - 10:00 PM)

Make it practical and easy to follow.`,
			req.Destination(), req.DateFrom(), req.DateTo(), req.Interests()),
		ExpectedOutput: fmt.Sprintf(`A complete travel itinerary document with:

# Travel Itinerary: %s

## Trip Overview
- Dates: %s to %s
- Duration: %d days
- Total Estimated Budget: $X,XXX

## Pre-Trip Information
[Visa, weather, what to pack, etc.]

## Day-by-Day Itinerary
[Detailed daily plans with times, activities, costs]

## Budget Summary
[Breakdown of estimated costs]

## Important Tips
[Key information for travelers]

Write in clear, organized markdown format.`,
			req.Destination(), req.DateFrom(), req.DateTo(), req.Days()),
	}
}
