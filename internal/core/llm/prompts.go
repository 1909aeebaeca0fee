package llm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cbroglie/mustache"
	"github.com/neilberkman/appforge/internal/core/models"
)

// Operation names, also used as template file names
const (
	OpPlan    = "plan"
	OpCode    = "code"
	OpImprove = "improve"
)

// CallOptions are the sampling parameters fixed per kind of call
type CallOptions struct {
	MaxTokens   int
	Temperature float64
}

// Call is a fully built prompt ready to send
type Call struct {
	Op      string
	System  string
	User    string
	Options CallOptions
}

const (
	planSystem    = "You are an expert React developer who creates detailed implementation plans for React applications."
	codeSystem    = "You are an expert React developer who creates beautiful, functional React applications using modern best practices."
	improveSystem = "You are an expert React developer who improves existing applications based on user feedback."
)

var (
	planOptions    = CallOptions{MaxTokens: 2000, Temperature: 0.7}
	codeOptions    = CallOptions{MaxTokens: 4000, Temperature: 0.7}
	improveOptions = CallOptions{MaxTokens: 4000, Temperature: 0.7}
)

// DefaultPlanTemplate is rendered with {{prompt}}
const DefaultPlanTemplate = `You are an expert React developer. A user wants to create the following application:

"{{{prompt}}}"

Please create a detailed implementation plan for this React application. The plan should include:

1. **Overview**: Brief description of what the app does
2. **Features**: List of key features to implement
3. **Technology Stack**: React with functional components and hooks
4. **Component Structure**: What React components will be created
5. **State Management**: What state the app needs and where it lives
6. **Implementation Steps**: High-level steps to build this React app

Format your response in markdown with clear headings and bullet points. Be specific but concise.`

// DefaultCodeTemplate is rendered with {{prompt}} and {{plan}}
const DefaultCodeTemplate = "You are an expert React developer. Based on the following user request and implementation plan, generate complete, production-ready React code.\n" +
	"\n" +
	"**User Request:**\n" +
	"\"{{{prompt}}}\"\n" +
	"\n" +
	"**Implementation Plan:**\n" +
	"{{{plan}}}\n" +
	"\n" +
	"Please generate a complete React application. Your response MUST follow this exact format with multiple React components:\n" +
	"\n" +
	"```jsx:App.jsx\n" +
	"[Complete App.jsx component - main app component with state and logic]\n" +
	"```\n" +
	"\n" +
	"```css:App.css\n" +
	"[Complete CSS for the app - modern, beautiful styling with animations and responsive design]\n" +
	"```\n" +
	"\n" +
	"```jsx:Component1.jsx\n" +
	"[First React component if needed - functional component with props]\n" +
	"```\n" +
	"\n" +
	"```css:Component1.css\n" +
	"[CSS for first component if needed]\n" +
	"```\n" +
	"\n" +
	"CRITICAL REQUIREMENTS - MUST FOLLOW EXACTLY:\n" +
	"1. DO NOT include ANY import statements - React and all hooks are already available globally\n" +
	"2. DO NOT write: import React from 'react'\n" +
	"3. DO NOT write: import { useState } from 'react'\n" +
	"4. DO NOT write: const { useState } = React\n" +
	"5. Just use useState, useEffect, etc. directly - they are already available\n" +
	"6. App.jsx MUST be defined as: function App() { ... } then export default App;\n" +
	"7. All other components MUST be: function ComponentName() { ... } then export default ComponentName;\n" +
	"8. ALL event handlers MUST update state - examples:\n" +
	"   - onClick={() => setCount(count + 1)} for increment\n" +
	"   - onClick={() => setCount(count - 1)} for decrement\n" +
	"   - onClick={() => setItems([...items, newItem])} for adding to arrays\n" +
	"9. CSS should be modern with colors, animations, proper spacing\n" +
	"10. Make it visually stunning and fully functional\n" +
	"\n" +
	"CORRECT EXAMPLE - Counter App:\n" +
	"```jsx:App.jsx\n" +
	"function App() {\n" +
	"  const [count, setCount] = useState(0);\n" +
	"\n" +
	"  return (\n" +
	"    <div className=\"app\">\n" +
	"      <h1>Count: {count}</h1>\n" +
	"      <button onClick={() => setCount(count + 1)}>+</button>\n" +
	"      <button onClick={() => setCount(count - 1)}>-</button>\n" +
	"    </div>\n" +
	"  );\n" +
	"}\n" +
	"\n" +
	"export default App;\n" +
	"```\n" +
	"\n" +
	"```css:App.css\n" +
	".app {\n" +
	"  display: flex;\n" +
	"  flex-direction: column;\n" +
	"  align-items: center;\n" +
	"  justify-content: center;\n" +
	"  min-height: 100vh;\n" +
	"  background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);\n" +
	"}\n" +
	"\n" +
	"h1 { font-size: 3rem; color: white; margin-bottom: 2rem; }\n" +
	"\n" +
	"button {\n" +
	"  padding: 1rem 2rem;\n" +
	"  font-size: 1.5rem;\n" +
	"  margin: 0.5rem;\n" +
	"  border: none;\n" +
	"  border-radius: 12px;\n" +
	"  background: white;\n" +
	"  cursor: pointer;\n" +
	"  transition: transform 0.2s;\n" +
	"}\n" +
	"\n" +
	"button:hover { transform: scale(1.1); }\n" +
	"```\n" +
	"\n" +
	"REMEMBER: NO IMPORTS! useState, useEffect, etc. are already in global scope.\n" +
	"Generate ONLY code blocks in format ```jsx:Filename.jsx or ```css:Filename.css"

// DefaultImproveTemplate is rendered with {{prompt}}, {{request}} and a
// {{#files}} list of {name, content}
const DefaultImproveTemplate = "You are improving an existing React application. Here's the context:\n" +
	"\n" +
	"**Original Request:** \"{{{prompt}}}\"\n" +
	"\n" +
	"**Current Files:**\n" +
	"{{#files}}\n" +
	"- {{{name}}}\n" +
	"{{/files}}\n" +
	"\n" +
	"**Current Code:**\n" +
	"{{#files}}\n" +
	"\n" +
	"// {{{name}}}\n" +
	"{{{content}}}\n" +
	"\n" +
	"{{/files}}\n" +
	"\n" +
	"**Improvement Request:** \"{{{request}}}\"\n" +
	"\n" +
	"Please generate the UPDATED code incorporating the requested changes. Follow the same format as before with proper filenames.\n" +
	"\n" +
	"CRITICAL: NO IMPORTS! useState, useEffect etc. are already available globally.\n" +
	"Generate code blocks in format ```jsx:Filename.jsx or ```css:Filename.css"

// Templates holds the mustache source for each prompt
type Templates struct {
	Plan    string
	Code    string
	Improve string
}

// DefaultTemplates returns the built-in prompt templates
func DefaultTemplates() Templates {
	return Templates{
		Plan:    DefaultPlanTemplate,
		Code:    DefaultCodeTemplate,
		Improve: DefaultImproveTemplate,
	}
}

// LoadTemplates starts from the defaults and replaces any template that has
// an override file <dir>/<op>.mustache. A missing dir is not an error.
func LoadTemplates(dir string) (Templates, error) {
	t := DefaultTemplates()
	if dir == "" {
		return t, nil
	}

	overrides := map[string]*string{
		OpPlan:    &t.Plan,
		OpCode:    &t.Code,
		OpImprove: &t.Improve,
	}
	for op, dst := range overrides {
		data, err := os.ReadFile(filepath.Join(dir, op+".mustache"))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Templates{}, fmt.Errorf("failed to read %s prompt template: %w", op, err)
		}
		*dst = string(data)
	}
	return t, nil
}

// Validate parses every template
func (t Templates) Validate() error {
	for op, src := range map[string]string{OpPlan: t.Plan, OpCode: t.Code, OpImprove: t.Improve} {
		if _, err := mustache.ParseString(src); err != nil {
			return fmt.Errorf("invalid %s prompt template: %w", op, err)
		}
	}
	return nil
}

// PlanPrompt builds the implementation-plan request
func (t Templates) PlanPrompt(userPrompt string) (Call, error) {
	user, err := mustache.Render(t.Plan, map[string]interface{}{
		"prompt": userPrompt,
	})
	if err != nil {
		return Call{}, fmt.Errorf("failed to render plan prompt: %w", err)
	}
	return Call{Op: OpPlan, System: planSystem, User: user, Options: planOptions}, nil
}

// CodePrompt builds the initial code-generation request
func (t Templates) CodePrompt(userPrompt, plan string) (Call, error) {
	user, err := mustache.Render(t.Code, map[string]interface{}{
		"prompt": userPrompt,
		"plan":   plan,
	})
	if err != nil {
		return Call{}, fmt.Errorf("failed to render code prompt: %w", err)
	}
	return Call{Op: OpCode, System: codeSystem, User: user, Options: codeOptions}, nil
}

// ImprovePrompt builds the improvement request over every current file
func (t Templates) ImprovePrompt(userPrompt string, files models.FileMap, request string) (Call, error) {
	var list []map[string]interface{}
	files.Each(func(name, content string) {
		list = append(list, map[string]interface{}{"name": name, "content": content})
	})

	user, err := mustache.Render(t.Improve, map[string]interface{}{
		"prompt":  userPrompt,
		"files":   list,
		"request": request,
	})
	if err != nil {
		return Call{}, fmt.Errorf("failed to render improve prompt: %w", err)
	}
	return Call{Op: OpImprove, System: improveSystem, User: user, Options: improveOptions}, nil
}
