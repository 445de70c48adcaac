// Package meta 定义 curation 的元数据记录：固定顺序的字段、参数别名、附加应用，
// 以及 meta.yaml 的读写。
package meta

// Field 是元数据字段的规范名（即 meta.yaml 中的键）。
type Field string

const (
	Title               Field = "Title"
	AlternateTitles     Field = "Alternate Titles"
	Library             Field = "Library"
	Series              Field = "Series"
	Developer           Field = "Developer"
	Publisher           Field = "Publisher"
	PlayMode            Field = "Play Mode"
	ReleaseDate         Field = "Release Date"
	Version             Field = "Version"
	Languages           Field = "Languages"
	Extreme             Field = "Extreme"
	Tags                Field = "Tags"
	Source              Field = "Source"
	Platform            Field = "Platform"
	Status              Field = "Status"
	ApplicationPath     Field = "Application Path"
	LaunchCommand       Field = "Launch Command"
	GameNotes           Field = "Game Notes"
	OriginalDescription Field = "Original Description"
	CurationNotes       Field = "Curation Notes"

	// AdditionalApplications 不是普通字段，由 Record 的 Apps 系列方法维护，序列化时总在最后。
	AdditionalApplications Field = "Additional Applications"
)

// Fields 是顶层字段的固定顺序（不含 Additional Applications）。
var Fields = []Field{
	Title, AlternateTitles, Library, Series, Developer, Publisher, PlayMode,
	ReleaseDate, Version, Languages, Extreme, Tags, Source, Platform, Status,
	ApplicationPath, LaunchCommand, GameNotes, OriginalDescription, CurationNotes,
}

// aliases 把参数名（含缩写）映射到规范字段名。
var aliases = map[string]Field{
	"title": Title, "name": Title,
	"alternateTitles": AlternateTitles, "altTitles": AlternateTitles, "alts": AlternateTitles,
	"library": Library, "lib": Library,
	"series": Series, "ser": Series,
	"developer": Developer, "dev": Developer,
	"publisher": Publisher, "pub": Publisher,
	"playMode": PlayMode, "mode": PlayMode,
	"releaseDate": ReleaseDate, "date": ReleaseDate,
	"version": Version, "ver": Version,
	"languages": Languages, "lang": Languages,
	"extreme": Extreme, "nsfw": Extreme,
	"tags": Tags, "genre": Tags,
	"source": Source, "src": Source, "url": Source,
	"platform": Platform, "tech": Platform,
	"status": Status, "s": Status,
	"applicationPath": ApplicationPath, "appPath": ApplicationPath, "app": ApplicationPath,
	"launchCommand": LaunchCommand, "launch": LaunchCommand, "cmd": LaunchCommand,
	"gameNotes": GameNotes, "notes": GameNotes,
	"originalDescription": OriginalDescription, "description": OriginalDescription, "desc": OriginalDescription,
	"curationNotes": CurationNotes, "cnotes": CurationNotes,
}

func init() {
	// 规范名本身也可以作为参数名使用。
	for _, f := range Fields {
		aliases[string(f)] = f
	}
}

// Resolve 把参数名解析为规范字段；不在别名表中时 ok=false。
func Resolve(key string) (f Field, ok bool) {
	f, ok = aliases[key]
	return f, ok
}

// Aliases 返回 field 的全部参数名（不含规范名本身），用于帮助输出。
func Aliases(field Field) []string {
	var out []string
	for k, f := range aliases {
		if f == field && k != string(field) {
			out = append(out, k)
		}
	}
	return out
}
