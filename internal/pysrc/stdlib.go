package pysrc

import "strings"

// pythonBuiltins is the table of builtin callables. Calls to these names are
// classified as builtin and never expanded.
var pythonBuiltins = map[string]bool{
	"abs": true, "aiter": true, "all": true, "anext": true, "any": true,
	"ascii": true, "bin": true, "bool": true, "breakpoint": true,
	"bytearray": true, "bytes": true, "callable": true, "chr": true,
	"classmethod": true, "compile": true, "complex": true, "delattr": true,
	"dict": true, "dir": true, "divmod": true, "enumerate": true,
	"eval": true, "exec": true, "filter": true, "float": true,
	"format": true, "frozenset": true, "getattr": true, "globals": true,
	"hasattr": true, "hash": true, "help": true, "hex": true, "id": true,
	"input": true, "int": true, "isinstance": true, "issubclass": true,
	"iter": true, "len": true, "list": true, "locals": true, "map": true,
	"max": true, "memoryview": true, "min": true, "next": true,
	"object": true, "oct": true, "open": true, "ord": true, "pow": true,
	"print": true, "property": true, "range": true, "repr": true,
	"reversed": true, "round": true, "set": true, "setattr": true,
	"slice": true, "sorted": true, "staticmethod": true, "str": true,
	"sum": true, "super": true, "tuple": true, "type": true, "vars": true,
	"zip": true, "__import__": true,
}

// pythonStdlib lists top-level standard library module names. Imports whose
// first dotted segment appears here are classified stdlib rather than
// third-party.
var pythonStdlib = map[string]bool{
	"abc": true, "argparse": true, "array": true, "ast": true,
	"asyncio": true, "base64": true, "bisect": true, "builtins": true,
	"calendar": true, "collections": true, "concurrent": true,
	"configparser": true, "contextlib": true, "copy": true, "csv": true,
	"ctypes": true, "dataclasses": true, "datetime": true, "decimal": true,
	"difflib": true, "dis": true, "enum": true, "errno": true,
	"fnmatch": true, "functools": true, "gc": true, "getpass": true,
	"glob": true, "gzip": true, "hashlib": true, "heapq": true,
	"hmac": true, "html": true, "http": true, "importlib": true,
	"inspect": true, "io": true, "ipaddress": true, "itertools": true,
	"json": true, "logging": true, "math": true, "mimetypes": true,
	"multiprocessing": true, "numbers": true, "operator": true, "os": true,
	"pathlib": true, "pickle": true, "platform": true, "pprint": true,
	"queue": true, "random": true, "re": true, "secrets": true,
	"select": true, "shlex": true, "shutil": true, "signal": true,
	"socket": true, "sqlite3": true, "ssl": true, "stat": true,
	"statistics": true, "string": true, "struct": true, "subprocess": true,
	"sys": true, "sysconfig": true, "tempfile": true, "textwrap": true,
	"threading": true, "time": true, "timeit": true, "tkinter": true,
	"token": true, "tokenize": true, "traceback": true, "types": true,
	"typing": true, "unicodedata": true, "unittest": true, "urllib": true,
	"uuid": true, "warnings": true, "weakref": true, "xml": true,
	"zipfile": true, "zlib": true, "zoneinfo": true,
}

// IsBuiltin reports whether name is a Python builtin callable.
func IsBuiltin(name string) bool {
	return pythonBuiltins[name]
}

// IsStdlibModule reports whether a dotted module path belongs to the
// standard library, judged by its first segment.
func IsStdlibModule(module string) bool {
	first := module
	if idx := strings.IndexByte(module, '.'); idx >= 0 {
		first = module[:idx]
	}
	return pythonStdlib[first]
}
