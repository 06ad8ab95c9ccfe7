package services

import "yatube/models"

// Page - страница ленты с метаданными пагинации.
// Нумерация с единицы; номер за пределами последней страницы
// прижимается к последней, а не считается ошибкой.
type Page struct {
	Items       []models.FeedPost `json:"items"`
	Number      int               `json:"number"`
	TotalPages  int               `json:"total_pages"`
	Count       int64             `json:"count"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
}

// pageBounds прижимает номер страницы к диапазону [1, total].
// Пустая выборка считается одной пустой страницей.
func pageBounds(count int64, pageSize, number int) (clamped, total int) {
	total = int((count + int64(pageSize) - 1) / int64(pageSize))
	if total < 1 {
		total = 1
	}
	if number < 1 {
		number = 1
	}
	if number > total {
		number = total
	}
	return number, total
}

func newPage(items []models.FeedPost, number, total int, count int64) *Page {
	if items == nil {
		items = []models.FeedPost{}
	}
	return &Page{
		Items:       items,
		Number:      number,
		TotalPages:  total,
		Count:       count,
		HasNext:     number < total,
		HasPrevious: number > 1,
	}
}
