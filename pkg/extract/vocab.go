package extract

// Curated vocabularies for entity recognition. Slices, not sets: matcher
// order over the vocabulary must be deterministic so that extraction output
// is reproducible chunk-for-chunk.

var technologyVocab = []string{
	"python", "javascript", "typescript", "java", "c++", "c#", "rust", "go", "swift",
	"react", "vue", "angular", "django", "flask", "fastapi", "node.js", "express",
	"postgresql", "mysql", "mongodb", "redis", "elasticsearch",
	"docker", "kubernetes", "aws", "azure", "gcp",
	"tensorflow", "pytorch", "scikit-learn", "pandas", "numpy",
	"git", "github", "gitlab", "jenkins", "terraform", "ansible",
	"api", "rest", "graphql",
	"ai", "ml", "machine learning", "artificial intelligence", "neural network",
	"llm", "rag", "retrieval augmented generation", "vector database", "embedding",
	"transformer",
}

var toolVocab = []string{
	"vscode", "pycharm", "intellij", "eclipse", "vim", "emacs", "sublime text",
	"postman", "curl", "wget", "jupyter", "colab", "notebook",
	"terminal", "cli", "bash", "powershell",
	"ssh", "ftp", "sftp", "rsync",
	"pip", "npm", "yarn", "conda", "virtualenv", "pipenv", "poetry",
	"make", "cmake", "gradle", "maven",
}

var methodVocab = []string{
	"algorithm", "data structure", "sorting", "searching", "recursion", "iteration",
	"oop", "object oriented", "functional programming", "design pattern",
	"mvc", "microservices", "monolith", "crud",
	"authentication", "authorization", "encryption", "hashing", "caching",
	"optimization", "refactoring", "testing", "debugging", "deployment",
	"ci/cd", "devops", "agile", "scrum", "kanban", "tdd", "bdd",
}

var organizationVocab = []string{
	"google", "microsoft", "amazon", "meta", "facebook", "apple", "netflix",
	"uber", "airbnb", "twitter", "linkedin", "github", "gitlab",
	"stackoverflow", "reddit",
	"openai", "anthropic", "deepmind",
	"nasa", "mit", "stanford", "berkeley", "cmu",
}

// Common acronyms that show up in almost every technical text and carry no
// entity signal on their own.
var ignoredAcronyms = map[string]struct{}{
	"API":  {},
	"URL":  {},
	"HTTP": {},
	"JSON": {},
	"XML":  {},
	"CSS":  {},
	"SQL":  {},
}
