package models

import "fmt"

// BuildPrompt composes the platform-specific prompt template for a topic.
// The short-post template pins the output to POST<n>: markers so the result
// can be split into standalone items by SplitPosts.
func BuildPrompt(contentType ContentType, topic string) string {
	switch contentType {
	case ContentTypeShortPost:
		return fmt.Sprintf(`Create exactly 4 engaging and detailed short posts about: "%s"

Rules:
- Generate exactly 4 independent posts
- Each post should be between 200-270 characters
- Make each post informative and engaging
- Include meaningful details and insights
- No emojis or hashtags
- Keep it professional and insightful
- Each post should be complete and standalone

Format EXACTLY like this:

POST1: First complete post here
POST2: Second complete post here
POST3: Third complete post here
POST4: Fourth complete post here`, topic)

	case ContentTypeCaption:
		return fmt.Sprintf(`Generate an engaging caption for this image about: "%s"

Rules:
- Create a captivating, ready-to-use caption
- Keep it authentic and engaging
- Include 3-4 relevant hashtags
- Maximum length: 2200 characters
- DO NOT include any analysis text or meta descriptions
- DO NOT start with image descriptions
- Focus on creating ONE clear, usable caption

Format the response EXACTLY like this:
CAPTION: [The actual caption text here]
HASHTAGS: [hashtags here]`, topic)

	case ContentTypeProfessionalPost:
		return fmt.Sprintf(`Create one professional post for: "%s"

The post should:
- Start with a compelling hook
- Use professional tone
- Include business insights
- Format with bullet points where relevant
- Use markdown for **bold** key points
- Include a professional call-to-action
- Maximum 3000 characters

Format with proper paragraph spacing and professional structure.`, topic)
	}

	return topic
}
