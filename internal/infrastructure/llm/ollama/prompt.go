package ollama

import "fmt"

func buildAnswerPrompt(question, contextText string) string {
	return fmt.Sprintf(`შენ ხარ იურიდიული ასისტენტი, რომელიც სპეციალიზებულია საქართველოს სამოქალაქო კოდექსში.
უპასუხე კითხვას მხოლოდ ქვემოთ მოცემული კოდექსის მუხლების საფუძველზე, ქართულ ენაზე.
მიუთითე შესაბამისი მუხლის ნომერი. თუ კონტექსტი არასაკმარისია, პირდაპირ თქვი ეს.

კითხვა:
%s

კონტექსტი:
%s
`, question, contextText)
}
