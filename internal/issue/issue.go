// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	FileNotFoundId Id = iota + 1
	ParseErrorId
	UnknownSyntaxId
	ValidationFailedId
	MergeInconsistentId
	MergeCanceledId
	DependencyCycleId
	InvalidBuiltinId
	ConfigLoadFailedId
	CommitFailedId
	WatchFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation about this issue
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	fileNotFoundIssue = &Issue{
		id: FileNotFoundId,
		mdMsg: `
# File not found!

One of the files to synchronize could not be read.

## Things you can try:
- Check the path for typos
- Make sure the file is readable by the current user
- Paths are relative to the current directory`,
	}

	parseErrorIssue = &Issue{
		id: ParseErrorId,
		mdMsg: `
# Failed to parse snippet markup!

A directive line in the file is malformed. Directives live in comments:

~~~python
#@snips[
#@load_file[
#@requires: mod:io
def load_file(name): ...
#@]
#@]
~~~

## Common causes:
- An element opened with ` + "`name[`" + ` is never closed with ` + "`]`" + `
- A ` + "`]`" + ` has no matching open element
- Text after ` + "`[`" + ` on a begin line
- A directive that is neither ` + "`name[`" + `, ` + "`]`" + ` nor ` + "`key: value`" + `

## Things you can try:
- Look at the reported line and the lines just above it
- Run ` + "`snep check FILE`" + ` after fixing to confirm`,
	}

	unknownSyntaxIssue = &Issue{
		id: UnknownSyntaxId,
		mdMsg: `
# Cannot determine the comment syntax!

snep picks the comment syntax from the file extension or the shebang line.

## Things you can try:
- Force a syntax for this run:
~~~
$ snep sync --syntax sh a.conf b.conf
~~~

- Map the extension in your config file:
~~~cue
syntaxes: {
	conf: "sh"
}
~~~

Known syntaxes: ` + "`sh`, `c`, `c++`, `hs`",
	}

	validationFailedIssue = &Issue{
		id: ValidationFailedId,
		mdMsg: `
# The document cannot be managed!

snep only rewrites documents whose containers have the expected shape.

## Rules:
- At most one ` + "`snips`" + ` and one ` + "`imports`" + ` container per file
- Every snippet in ` + "`snips`" + ` has a distinct name
- ` + "`snips`" + ` holds only snippets and blank lines
- ` + "`imports`" + ` holds only ` + "`import name`" + ` lines
- A file that needs modules or snippets must have the matching container`,
	}

	mergeInconsistentIssue = &Issue{
		id: MergeInconsistentId,
		mdMsg: `
# The merge result does not match the conflicts!

After an interactive merge every conflicting snippet must be present exactly
once, and no other snippet may be added. No file was modified.

## Things you can try:
- Run the sync again and keep each ` + "`name[`" + ` element in the merge file
- Use ` + "`--left`" + ` or ` + "`--right`" + ` to take one side wholesale`,
	}

	mergeCanceledIssue = &Issue{
		id: MergeCanceledId,
		mdMsg: `
# Merge canceled!

The merge was abandoned and no file was modified.

## Things you can try:
- Run the sync again and resolve every conflict marker
- Use ` + "`--left`" + ` or ` + "`--right`" + ` to skip the editor`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Snippets require each other, so no order puts every dependency first.

## Things you can try:
- Follow the ` + "`requires`" + ` attributes of the listed snippets
- Merge the snippets of the cycle into one snippet`,
	}

	invalidBuiltinIssue = &Issue{
		id: InvalidBuiltinId,
		mdMsg: `
# Invalid built-in snippet!

Names with a colon refer to built-in snippets. The only category is ` + "`mod`" + `,
which imports a module: ` + "`mod:os`" + `.

## Things you can try:
- Check the spelling of the category
- The module name may only contain letters, digits and underscores`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Print the built-in defaults:
~~~
$ snep config dump
~~~

- Show where snep looks for its config file:
~~~
$ snep config path
~~~

- Check the file against the schema: every field is optional, ` + "`sort`" + `,
  ` + "`purge`" + ` and ` + "`keep_backup`" + ` are booleans and ` + "`search_path`" + ` is a list of strings`,
	}

	commitFailedIssue = &Issue{
		id: CommitFailedId,
		mdMsg: `
# Failed to write the synchronized file!

The original content was restored from its ` + "`.orig`" + ` backup. Files written
before the failure keep their new content.

## Things you can try:
- Check free disk space and write permissions
- Rerun the sync once the problem is fixed`,
	}

	watchFailedIssue = &Issue{
		id: WatchFailedId,
		mdMsg: `
# Failed to watch the files!

## Things you can try:
- On Linux, raise the inotify limits:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
$ sudo sysctl fs.inotify.max_user_instances=512
~~~

- Narrow the patterns so fewer directories are watched, or add ` + "`--ignore`" + ` globs
- Run ` + "`snep update`" + ` by hand while the limit is investigated`,
	}

	issues = map[Id]*Issue{
		fileNotFoundIssue.Id():      fileNotFoundIssue,
		parseErrorIssue.Id():        parseErrorIssue,
		unknownSyntaxIssue.Id():     unknownSyntaxIssue,
		validationFailedIssue.Id():  validationFailedIssue,
		mergeInconsistentIssue.Id(): mergeInconsistentIssue,
		mergeCanceledIssue.Id():     mergeCanceledIssue,
		dependencyCycleIssue.Id():   dependencyCycleIssue,
		invalidBuiltinIssue.Id():    invalidBuiltinIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		commitFailedIssue.Id():      commitFailedIssue,
		watchFailedIssue.Id():       watchFailedIssue,
	}
)

// Values returns every catalogued issue ordered by id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

// Catalog returns a copy of the issue catalog.
func Catalog() map[Id]*Issue {
	return maps.Clone(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
