package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// previewLength is the number of English characters shown before a topic is
// translated.
const previewLength = 200

// Language is a translation target.
type Language struct {
	Code       string
	Name       string
	NativeName string
}

// Topic is a health topic with its English source text.
type Topic struct {
	Key     string
	Title   string
	Content string
}

var languages = []Language{
	{Code: "ach", Name: "Acholi", NativeName: "Acholi"},
	{Code: "teo", Name: "Ateso", NativeName: "Ateso"},
	{Code: "lug", Name: "Luganda", NativeName: "Oluganda"},
	{Code: "lgg", Name: "Lugbara", NativeName: "Lugbara"},
	{Code: "nyn", Name: "Runyankole", NativeName: "Runyankole"},
}

var topics = []Topic{
	{
		Key:     "malaria",
		Title:   "Malaria Prevention & Treatment",
		Content: `Malaria is a serious disease spread by mosquito bites. Symptoms include fever, chills, headache, and body aches. To prevent malaria: sleep under treated mosquito nets, use insect repellent, wear long sleeves and pants in the evening, and remove standing water around your home. If you have fever, seek medical care immediately. Take antimalarial medication as prescribed by a healthcare worker. Pregnant women and children under 5 are at highest risk and should take extra precautions.`,
	},
	{
		Key:     "covid19",
		Title:   "COVID-19 Prevention & Safety",
		Content: `COVID-19 is a respiratory illness that spreads through droplets when infected people cough, sneeze, or talk. Symptoms include fever, cough, difficulty breathing, loss of taste or smell, and fatigue. To protect yourself: wash hands frequently with soap for 20 seconds, wear a mask in crowded places, maintain physical distance from others, avoid touching your face, and get vaccinated when available. If you feel sick, stay home and seek medical advice. Cover coughs and sneezes with your elbow.`,
	},
	{
		Key:     "maternal",
		Title:   "Maternal & Child Health Care",
		Content: `Pregnant women should attend regular antenatal care visits to monitor the health of mother and baby. Eat nutritious foods including fruits, vegetables, and proteins. Take folic acid and iron supplements as recommended. Avoid alcohol, smoking, and harmful substances. Deliver with a skilled birth attendant at a health facility. After birth, breastfeed exclusively for 6 months. Ensure children receive all recommended vaccinations. Watch for danger signs like severe bleeding, high fever, or difficulty breathing and seek immediate medical care.`,
	},
	{
		Key:     "hygiene",
		Title:   "Personal & Community Hygiene",
		Content: `Good hygiene prevents many diseases. Wash hands with soap and clean water before eating, after using the toilet, and after handling animals. Brush teeth twice daily and visit a dentist regularly. Keep your home and surroundings clean. Use clean, safe water for drinking and cooking. Store food properly to prevent contamination. Dispose of waste in designated areas. Keep latrines clean and away from water sources. Bathe regularly and wear clean clothes. Teach children proper hygiene habits from an early age.`,
	},
	{
		Key:     "nutrition",
		Title:   "Nutrition & Healthy Eating",
		Content: `A balanced diet is essential for good health. Eat a variety of foods including fruits, vegetables, whole grains, proteins, and dairy products. Limit sugar, salt, and processed foods. Drink plenty of clean water daily. For children, breastfeed exclusively for the first 6 months, then introduce nutritious complementary foods. Ensure children get enough vitamins and minerals for proper growth. Adults should maintain a healthy weight through proper diet and exercise. If you have diabetes or other conditions, follow dietary advice from healthcare providers.`,
	},
}

// Languages returns the supported target languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Topics returns the health topics in display order.
func Topics() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

// LanguageByCode looks up a language by its code.
func LanguageByCode(code string) (Language, bool) {
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// TopicByKey looks up a topic by its key.
func TopicByKey(key string) (Topic, bool) {
	for _, t := range topics {
		if t.Key == key {
			return t, true
		}
	}
	return Topic{}, false
}

// Preview returns the start of the topic's English text, as shown before
// translation.
func (t Topic) Preview() string {
	r := []rune(t.Content)
	if len(r) <= previewLength {
		return t.Content
	}
	return strings.TrimRight(string(r[:previewLength]), " ") + "..."
}

// FilterValue is the string a language is matched against when filtering.
func (l Language) FilterValue() string {
	return l.Name + " " + l.NativeName + " " + l.Code
}

// FilterValue is the string a topic is matched against when filtering.
func (t Topic) FilterValue() string {
	return t.Title + " " + t.Key
}

type languageSource []Language

func (s languageSource) String(i int) string { return s[i].FilterValue() }
func (s languageSource) Len() int            { return len(s) }

type topicSource []Topic

func (s topicSource) String(i int) string { return s[i].FilterValue() }
func (s topicSource) Len() int            { return len(s) }

// SearchLanguages returns the languages matching query, best match first. An
// empty query returns every language in display order.
func SearchLanguages(query string) []Language {
	if strings.TrimSpace(query) == "" {
		return Languages()
	}
	matches := fuzzy.FindFrom(query, languageSource(languages))
	out := make([]Language, 0, len(matches))
	for _, m := range matches {
		out = append(out, languages[m.Index])
	}
	return out
}

// SearchTopics returns the topics matching query, best match first. An empty
// query returns every topic in display order.
func SearchTopics(query string) []Topic {
	if strings.TrimSpace(query) == "" {
		return Topics()
	}
	matches := fuzzy.FindFrom(query, topicSource(topics))
	out := make([]Topic, 0, len(matches))
	for _, m := range matches {
		out = append(out, topics[m.Index])
	}
	return out
}
