// Пакет model — доменные модели сайта ассоциации.
// ConcoursItem — элемент упорядоченной категории конкурсных документов,
// Document — запись фиксированного каталога документов секции.
package model

import "time"

// ConcoursCategory — категория конкурсных документов.
type ConcoursCategory string

const (
	// CategoryReglements — регламенты конкурсов
	CategoryReglements ConcoursCategory = "reglements"
	// CategoryPalmaresPoetique — палмарес поэтического конкурса
	CategoryPalmaresPoetique ConcoursCategory = "palmares-poetique"
	// CategoryPalmaresArtistique — палмарес художественного конкурса
	CategoryPalmaresArtistique ConcoursCategory = "palmares-artistique"
)

// Categories — полный список категорий в порядке отображения.
var Categories = []ConcoursCategory{
	CategoryReglements,
	CategoryPalmaresPoetique,
	CategoryPalmaresArtistique,
}

// IsValidCategory проверяет, что строка — известная категория конкурса.
func IsValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// ConcoursItem — один документ категории конкурса.
// Вся категория хранится как единый JSON-массив под ключом
// concours:<category> в KV. Порядок элементов — порядок отображения,
// управляется операцией reorder.
type ConcoursItem struct {
	// R2Key — полный ключ объекта в объектном хранилище (идентификатор)
	R2Key string `json:"r2Key"`

	// Title — заголовок документа, задаётся администратором
	Title string `json:"title"`

	// OriginalFilename — оригинальное имя файла при загрузке
	OriginalFilename string `json:"originalFilename"`

	// UploadedAt — дата и время загрузки (ISO-8601, UTC)
	UploadedAt time.Time `json:"uploadedAt"`

	// Size — размер файла в байтах
	Size int64 `json:"size"`
}

// Document — запись фиксированного каталога документов.
// Каталог закрытый: администратор может заменить содержимое документа,
// но не завести новый ключ. Путь отображается в единственный
// канонический ключ documents/<Path>.
type Document struct {
	// Path — имя файла документа внутри префикса documents/
	Path string `json:"path"`

	// Label — человекочитаемое название документа
	Label string `json:"label"`

	// Available — найден ли объект в хранилище (вычисляется при запросе)
	Available bool `json:"available"`
}

// DocumentCatalog — фиксированный каталог документов секции.
// Редактируется только вместе с кодом: это осознанное ограничение
// (closed-world), отличающее документы от конкурсных материалов.
var DocumentCatalog = []Document{
	{Path: "bulletin-adhesion.pdf", Label: "Bulletin d'adhésion"},
	{Path: "statuts.pdf", Label: "Statuts de l'association"},
	{Path: "reglement-interieur.pdf", Label: "Règlement intérieur"},
	{Path: "plaquette.pdf", Label: "Plaquette de présentation"},
}

// FindDocument возвращает запись каталога по пути или nil.
func FindDocument(path string) *Document {
	for i := range DocumentCatalog {
		if DocumentCatalog[i].Path == path {
			d := DocumentCatalog[i]
			return &d
		}
	}
	return nil
}
