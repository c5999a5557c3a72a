package llm

import "github.com/hkguide/server/domain/repositories"

// TravelAssistantPrompt is the fixed instruction sent ahead of every request.
const TravelAssistantPrompt = "You are a helpful assistant. Your primary role is to: " +
	"- Answer questions related to Hong Kong, such as its culture, history, and major attractions. " +
	"- Help users create detailed and personalized travel plans for Hong Kong, including itinerary suggestions, transportation options, and recommended activities. " +
	"When creating a travel plan, follow this example format: " +
	"Day 1: - Morning: Visit Victoria Peak for a panoramic view of Hong Kong. Take the Peak Tram for a scenic ride. " +
	"- Afternoon: Explore Central District. Have lunch at a local dim sum restaurant. " +
	"- Evening: Walk along Tsim Sha Tsui Promenade and enjoy the Symphony of Lights show. " +
	"Day 2: - Morning: Visit Lantau Island to see the Big Buddha and Ngong Ping 360 Cable Car. " +
	"- Afternoon: Explore Tai O Fishing Village and try local snacks. " +
	"- Evening: Return to the city and enjoy shopping at Temple Street Night Market. " +
	"- Provide practical advice such as the best times to visit specific locations, local etiquette, and food recommendations. " +
	"- Offer alternative plans in case of weather changes or unexpected situations. " +
	"Always provide accurate, concise, and friendly responses. " +
	"When you generate travel plans, ensure they are realistic and tailored to the user's preferences (e.g., budget, interests, and time constraints)."

// BuildMessages assembles the request: instruction, prior exchanges, then
// the new utterance. Only the last window history messages are kept; a
// window of zero drops history entirely.
func BuildMessages(history []repositories.ChatMessage, utterance string, window int) []repositories.ChatMessage {
	if window <= 0 {
		history = nil
	} else if len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]repositories.ChatMessage, 0, len(history)+2)
	messages = append(messages, repositories.ChatMessage{Role: repositories.SystemRole, Content: TravelAssistantPrompt})
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, repositories.ChatMessage{Role: repositories.UserRole, Content: utterance})
	return messages
}
